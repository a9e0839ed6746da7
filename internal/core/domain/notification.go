package domain

// Notification reports a change of a subscribed key.
type Notification struct {
	Key     string
	Value   string
	Deleted bool
}

// String returns the wire form: "(key,value)\n" or "(key,DELETED)\n".
func (n Notification) String() string {
	v := n.Value
	if n.Deleted {
		v = MarkerDeleted
	}
	return "(" + n.Key + "," + v + ")\n"
}
