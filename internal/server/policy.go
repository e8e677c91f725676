package server

// BroadcastPolicy decides whether a connection may publish into a room.
// The hub consults it for every sendMessage event.
type BroadcastPolicy interface {
	AllowBroadcast(sender *Client, meetingID string) bool
}

// BroadcastPolicyFunc adapts a plain function to BroadcastPolicy.
type BroadcastPolicyFunc func(sender *Client, meetingID string) bool

// AllowBroadcast calls f.
func (f BroadcastPolicyFunc) AllowBroadcast(sender *Client, meetingID string) bool {
	return f(sender, meetingID)
}

// AllowAll lets any connected client publish into any room it can name,
// whether or not it joined that room.
type AllowAll struct{}

// AllowBroadcast always returns true.
func (AllowAll) AllowBroadcast(*Client, string) bool { return true }
