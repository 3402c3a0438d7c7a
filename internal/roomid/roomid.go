// Package roomid generates memorable room identifiers for callers who do not
// bring their own. Room ids are caller-chosen opaque strings as far as the
// server is concerned; this is purely a convenience for the CLI.
package roomid

import (
	"crypto/rand"
	"math/big"
	"strings"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "emerald", "purple", "bright", "gentle", "brave", "calm", "swift",
	"silent", "bouncy", "fuzzy", "plucky", "merry", "peppy", "lucky", "mellow", "breezy", "dapper",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"fawn", "lamb", "raccoon", "mole", "ferret", "beaver", "seahorse", "dolphin", "whale", "narwhal",
	"penguin", "flamingo", "pelican", "sparrow", "robin", "toucan", "parrot", "canary", "heron", "wren",
}

var things = []string{
	"sunbeam", "stardust", "pepper", "muffin", "bubble", "sprout", "glimmer", "whisker", "echo", "jelly",
	"marble", "maple", "cocoa", "hazel", "breeze", "meadow", "willow", "ember", "poppy", "pixel",
	"lantern", "puddle", "pebble", "cottage", "rocket", "comet", "orbit", "nebula", "canyon", "ridge",
}

// New returns a memorable three-word room id like "cozy-otter-lantern".
func New() string {
	parts := []string{
		adjectives[randomIndex(len(adjectives))],
		animals[randomIndex(len(animals))],
		things[randomIndex(len(things))],
	}
	return strings.Join(parts, "-")
}

// randomIndex returns a cryptographically secure random index for a slice of
// the given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		// crypto/rand failing means the platform is broken; a predictable
		// room id is not an acceptable fallback.
		panic("roomid: random source unavailable: " + err.Error())
	}
	return int(n.Int64())
}
