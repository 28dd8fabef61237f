package domain

// RemoteState is the platform-side state of an asynchronous coupon request.
type RemoteState string

const (
	RemoteStatePending RemoteState = "PENDING"
	RemoteStateDone    RemoteState = "DONE"
	RemoteStateFailed  RemoteState = "FAILED"
)

// RequestStatus is one observation of an asynchronous request handle.
// CouponID is only set once a coupon creation request reaches DONE.
type RequestStatus struct {
	State    RemoteState
	CouponID int64
	Message  string
}
