package notifications

import (
	"slices"
	"time"
)

// Kind tags what a notification is about.
type Kind string

const (
	KindNewFollower         Kind = "new_follower"
	KindNewNoteFromFollowed Kind = "new_note_from_followed"
	KindNotePurchased       Kind = "note_purchased"
	KindNewReview           Kind = "new_review"
	KindNewClassScheduled   Kind = "new_class_scheduled"
	KindMentorNewHours      Kind = "mentor_new_hours"
	KindOther               Kind = "other"
)

var knownKinds = []Kind{
	KindNewFollower,
	KindNewNoteFromFollowed,
	KindNotePurchased,
	KindNewReview,
	KindNewClassScheduled,
	KindMentorNewHours,
}

// ParseKind maps a stored tag to a Kind. Unknown tags become KindOther.
func ParseKind(s string) Kind {
	if k := Kind(s); slices.Contains(knownKinds, k) {
		return k
	}
	return KindOther
}

// Sender is the public identity snapshot of whoever caused a notification.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Handle      string `json:"handle"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Notification is a server-stored event relevant to one user.
type Notification struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Kind            Kind      `json:"kind"`
	SenderID        string    `json:"sender_id,omitempty"` // empty for system notifications
	Sender          *Sender   `json:"sender,omitempty"`
	RelatedEntityID string    `json:"related_entity_id,omitempty"`
	Message         string    `json:"message"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`

	// AlreadyFollowingSender is a display hint captured at fetch time.
	AlreadyFollowingSender bool `json:"already_following_sender"`
}

// OffersFollowBack reports whether a follow-back action should be shown.
func (n Notification) OffersFollowBack() bool {
	return n.Kind == KindNewFollower && n.SenderID != "" && !n.AlreadyFollowingSender
}

// SenderName returns the sender's display name, falling back to the handle.
func (n Notification) SenderName() string {
	if n.Sender == nil {
		return ""
	}
	if n.Sender.DisplayName != "" {
		return n.Sender.DisplayName
	}
	return n.Sender.Handle
}

// Clone returns a copy that shares no pointers with n.
func (n Notification) Clone() Notification {
	if n.Sender != nil {
		s := *n.Sender
		n.Sender = &s
	}
	return n
}

// newer reports whether a sorts before b in a newest-first list.
// Equal timestamps fall back to id order so the sort is total.
func newer(a, b Notification) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func sortNewestFirst(list []Notification) {
	slices.SortStableFunc(list, func(a, b Notification) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		default:
			return 0
		}
	})
}
