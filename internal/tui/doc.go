// Package tui provides terminal UI components shared by the wmbusdecode
// command-line tool: a command header, a multi-step progress display for
// the decode pipeline, and a live dashboard of meters a running session
// has seen.
//
// # Components
//
//   - Header: command banner showing operation name and parameters.
//   - Progress: progress bar with a step list, used to show a telegram's
//     path through frame→header→decrypt→dv-walk→extract→render.
//   - Dashboard: a refreshing bubbletea model listing cached meters from
//     a *session.DecoderSession (id, driver, name, last seen).
//
// # Usage
//
//	p := tui.NewProgress("decoding telegram", 6)
//	p.SetStepNames([]string{"frame", "header", "decrypt", "dv-walk", "extract", "render"})
//	p.StartStep(1, "")
//	fmt.Println(p.Render())
//
// # Logging integration
//
// Logging is controlled independently via WMBUS_LOG_LEVEL (see
// internal/mlog); when unset, no log output competes with the rendered
// TUI.
package tui
