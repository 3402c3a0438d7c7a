package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ServerStats mirrors the /stats endpoint payload.
type ServerStats struct {
	TotalRooms       int `json:"totalRooms"`
	TotalUsers       int `json:"totalUsers"`
	ConnectedClients int `json:"connectedClients"`
}

// RenderServerStats prints the signaling server stats as a table.
func RenderServerStats(domain string, stats ServerStats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Signaling server %s", domain))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Active rooms", stats.TotalRooms},
		{"Occupants", stats.TotalUsers},
		{"Connected clients", stats.ConnectedClients},
	})
	t.Render()
}
