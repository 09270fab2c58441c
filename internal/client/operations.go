package client

import "bookd/internal/protocol"

// Query fetches availability text for the comma-separated day names.
func (c *Client) Query(facility, daysCsv string) (*Reply, error) {
	payload := protocol.NewWriter().PutString(facility).PutString(daysCsv).Bytes()
	return c.roundTrip(protocol.OpQuery, payload)
}

// Book reserves [startMin, endMin) on day for the facility.
func (c *Client) Book(facility string, day, startMin, endMin int32) (*Reply, error) {
	payload := protocol.NewWriter().
		PutString(facility).
		PutI32(day).
		PutI32(startMin).
		PutI32(endMin).
		Bytes()
	return c.roundTrip(protocol.OpBook, payload)
}

// Change shifts a booking by shiftMinutes, keeping its duration.
func (c *Client) Change(id int64, shiftMinutes int32) (*Reply, error) {
	payload := protocol.NewWriter().PutI64(id).PutI32(shiftMinutes).Bytes()
	return c.roundTrip(protocol.OpChange, payload)
}

// Cancel releases a booking. Safe to repeat.
func (c *Client) Cancel(id int64) (*Reply, error) {
	payload := protocol.NewWriter().PutI64(id).Bytes()
	return c.roundTrip(protocol.OpCancel, payload)
}

// Extend moves a booking's boundaries independently.
func (c *Client) Extend(id int64, startDelta, endDelta int32) (*Reply, error) {
	payload := protocol.NewWriter().PutI64(id).PutI32(startDelta).PutI32(endDelta).Bytes()
	return c.roundTrip(protocol.OpExtend, payload)
}

// QueryBooking fetches the details text for a confirmation id.
func (c *Client) QueryBooking(id int64) (*Reply, error) {
	payload := protocol.NewWriter().PutI64(id).Bytes()
	return c.roundTrip(protocol.OpQueryBooking, payload)
}

// MonitorRegister subscribes this client's socket to facility updates
// for the given number of seconds. Follow with Listen to receive them.
func (c *Client) MonitorRegister(facility string, seconds int32) (*Reply, error) {
	payload := protocol.NewWriter().PutString(facility).PutI32(seconds).Bytes()
	return c.roundTrip(protocol.OpMonitorRegister, payload)
}
