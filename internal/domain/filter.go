package domain

// Visible reports whether a notification belongs in the admin stream.
// Payment notifications and admin-originated records are excluded.
//
// The same predicate runs on the batch fetch, the live push, and the client
// channel manager: the delivered set must never depend on whether a record
// arrived via poll or via push.
func Visible(n Notification) bool {
	if n.Category == CategoryPayment {
		return false
	}
	if n.Metadata != nil && n.Metadata[MetaSource] == SourceAdminDashboard {
		return false
	}
	return true
}

// FilterVisible returns the subset of notifications passing Visible,
// preserving order.
func FilterVisible(in []Notification) []Notification {
	out := make([]Notification, 0, len(in))
	for _, n := range in {
		if Visible(n) {
			out = append(out, n)
		}
	}
	return out
}
