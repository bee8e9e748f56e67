package serialport

// PortDescriptor is the discovery metadata of one serial port. Path is the
// only field guaranteed to be set.
type PortDescriptor struct {
	Path         string
	Name         string
	Description  string
	Manufacturer string
	Product      string
	SerialNumber string
	VendorID     string
	ProductID    string

	// USB topology, empty for non-USB ports
	InterfaceNumber string
	BusNumber       string
	DeviceNumber    string
	LocationID      string
}

// RemoteStatus holds the incoming modem status lines
type RemoteStatus struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	DCD bool // Data Carrier Detect
}

// ControlLines selects outgoing modem lines to change. A nil field leaves
// the line as it is.
type ControlLines struct {
	RTS *bool // Request To Send
	DTR *bool // Data Terminal Ready
	BRK *bool // Break condition
}

// Line returns a pointer to state, for building ControlLines literals.
func Line(state bool) *bool {
	return &state
}

// UpdateOptions holds the settings that may change on an open port.
type UpdateOptions struct {
	BaudRate int
}
