package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestRejected  RequestStatus = "rejected"
	RequestCancelled RequestStatus = "cancelled"
	RequestExpired   RequestStatus = "expired"
)

// AllRequestStatuses lists every status in lifecycle order.
var AllRequestStatuses = []RequestStatus{
	RequestPending, RequestAccepted, RequestRejected, RequestCancelled, RequestExpired,
}

// IsActive reports whether the status still occupies the sender/receiver pair.
func (s RequestStatus) IsActive() bool {
	return s == RequestPending || s == RequestAccepted
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	for _, known := range AllRequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending_review"
	ReviewApproved ReviewStatus = "approved"
)

type MeetingType string

const (
	MeetingInPerson MeetingType = "in_person"
	MeetingVideo    MeetingType = "video"
	MeetingPhone    MeetingType = "phone"
)

type MeetingStatus string

const (
	MeetingNone      MeetingStatus = ""
	MeetingProposed  MeetingStatus = "proposed"
	MeetingConfirmed MeetingStatus = "confirmed"
)

// ContactInfo is how the receiver can reach the sender's side.
type ContactInfo struct {
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Whatsapp      string `json:"whatsapp,omitempty"`
	GuardianName  string `json:"guardianName,omitempty"`
	GuardianPhone string `json:"guardianPhone,omitempty"`
}

// IsEmpty reports whether no contact channel was given at all.
func (c ContactInfo) IsEmpty() bool {
	return c.Phone == "" && c.Email == "" && c.Whatsapp == "" && c.GuardianPhone == ""
}

// Meeting is the arrangement sub-state of an accepted request.
type Meeting struct {
	Status           MeetingStatus `gorm:"type:text" json:"status"`
	Type             MeetingType   `gorm:"type:text" json:"type,omitempty"`
	ProposedAt       *time.Time    `json:"proposedAt,omitempty"`
	Location         string        `json:"location,omitempty"`
	IncludesGuardian bool          `json:"includesGuardian"`
	GuardianName     string        `json:"guardianName,omitempty"`
	GuardianPhone    string        `json:"guardianPhone,omitempty"`
	Notes            string        `gorm:"type:text" json:"notes,omitempty"`
	ProposedBy       string        `json:"proposedBy,omitempty"`
	ConfirmedAt      *time.Time    `json:"confirmedAt,omitempty"`
}

// MarriageRequest is a proposal from Sender to Receiver.
//
// ActivePairKey is non-NULL exactly while the request is pending or accepted;
// its unique index is the storage-level guard for one active request per pair.
type MarriageRequest struct {
	ID         string `gorm:"primaryKey;type:text" json:"id"`
	SenderID   string `gorm:"type:text;not null;index" json:"senderId"`
	ReceiverID string `gorm:"type:text;not null;index" json:"receiverId"`

	Message string      `gorm:"type:text;not null" json:"message"`
	Contact ContactInfo `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`

	Status          RequestStatus `gorm:"type:text;not null;index" json:"status"`
	ReviewStatus    ReviewStatus  `gorm:"type:text;not null" json:"reviewStatus"`
	ResponseReason  string        `gorm:"type:text" json:"responseReason,omitempty"`
	ResponseMessage string        `gorm:"type:text" json:"responseMessage,omitempty"`
	RespondedAt     *time.Time    `json:"respondedAt,omitempty"`
	ExpiresAt       time.Time     `gorm:"index" json:"expiresAt"`
	ChatRoomID      string        `gorm:"type:text" json:"chatRoomId,omitempty"`

	Meeting Meeting `gorm:"embedded;embeddedPrefix:meeting_" json:"meeting"`

	ActivePairKey *string `gorm:"uniqueIndex" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"-"`
}

func (r *MarriageRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = RequestPending
	}
	if r.ReviewStatus == "" {
		r.ReviewStatus = ReviewPending
	}
	return
}

// IsParticipant reports whether userID is the sender or the receiver.
func (r *MarriageRequest) IsParticipant(userID string) bool {
	return r.SenderID == userID || r.ReceiverID == userID
}

// Counterpart returns the other participant.
func (r *MarriageRequest) Counterpart(userID string) string {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}

// PairKey builds the value stored in ActivePairKey. With bothDirections the
// key ignores who sent the request.
func PairKey(senderID, receiverID string, bothDirections bool) string {
	if bothDirections && receiverID < senderID {
		senderID, receiverID = receiverID, senderID
	}
	return senderID + ":" + receiverID
}

// RequestView is the API shape of a request with normalized member refs.
type RequestView struct {
	MarriageRequest
	Sender   *UserRef `json:"sender,omitempty"`
	Receiver *UserRef `json:"receiver,omitempty"`
}

// View builds a RequestView from a request whose Sender/Receiver may or may
// not have been preloaded.
func (r *MarriageRequest) View() RequestView {
	v := RequestView{MarriageRequest: *r}
	if r.Sender != nil {
		ref := r.Sender.Ref()
		v.Sender = &ref
	}
	if r.Receiver != nil {
		ref := r.Receiver.Ref()
		v.Receiver = &ref
	}
	return v
}

// RequestStats counts requests by status in each direction.
type RequestStats struct {
	Sent     map[RequestStatus]int64 `json:"sent"`
	Received map[RequestStatus]int64 `json:"received"`
}
