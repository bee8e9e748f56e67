package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/serialport"
	"github.com/allbin/serialport/internal/tui/styles"
)

const (
	colPath   = "path"
	colDesc   = "description"
	colVIDPID = "vidpid"
	colSerial = "serial"
	colLoc    = "location"
)

// PortsTable lists discovered ports with filtering and a highlighted row
func PortsTable(ports []serialport.PortDescriptor, width int) table.Model {
	columns := []table.Column{
		table.NewColumn(colPath, "Port", 18).WithFiltered(true),
		table.NewFlexColumn(colDesc, "Description", 2).WithFiltered(true),
		table.NewColumn(colVIDPID, "VID:PID", 11),
		table.NewFlexColumn(colSerial, "Serial", 1).WithFiltered(true),
		table.NewColumn(colLoc, "Location", 12),
	}

	return table.New(columns).
		WithRows(PortRows(ports)).
		Focused(true).
		Filtered(true).
		WithTargetWidth(width).
		WithPageSize(15).
		SortByAsc(colPath).
		BorderRounded().
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableHighlightStyle).
		WithBaseStyle(lipgloss.NewStyle().BorderForeground(styles.TableBorderColor).Align(lipgloss.Left))
}

// PortRows converts descriptors into table rows keyed by column
func PortRows(ports []serialport.PortDescriptor) []table.Row {
	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		vidpid := ""
		if p.VendorID != "" || p.ProductID != "" {
			vidpid = p.VendorID + ":" + p.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			colPath:   p.Path,
			colDesc:   p.Description,
			colVIDPID: vidpid,
			colSerial: p.SerialNumber,
			colLoc:    p.LocationID,
		}))
	}
	return rows
}

// SelectedPath returns the port path of the highlighted row
func SelectedPath(t table.Model) string {
	path, _ := t.HighlightedRow().Data[colPath].(string)
	return path
}
