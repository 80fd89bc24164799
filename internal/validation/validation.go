// Package validation holds the boundary payload types and their field rules.
// Handlers decode into these types and validate them before any workflow code
// sees the data.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"zawaj/backend/internal/apperr"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// Validator applies struct tag rules plus the configurable request rules.
type Validator struct {
	v      *validator.Validate
	policy config.RequestPolicy
}

// New builds a Validator for the given request policy.
func New(policy config.RequestPolicy) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration errors only happen for empty tags or nil funcs.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(normalizePhone(fl.Field().String()))
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	})

	return &Validator{v: v, policy: policy}
}

// Struct validates tags on s and returns a validation *apperr.Error listing
// every failing field, or nil.
func (val *Validator) Struct(s any) error {
	fields := val.fieldErrors(s)
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("invalid input", fields...)
}

func (val *Validator) fieldErrors(s any) []apperr.FieldError {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Field: "body", Message: err.Error()}}
	}
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fieldPath(fe), Message: message(fe)})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid phone number"
	case "password":
		return "must contain at least one letter and one digit"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must have at least " + fe.Param() + " items"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must have at most " + fe.Param() + " items"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "nefield":
		return "must differ from " + fe.Param()
	default:
		return "is invalid"
	}
}

func normalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(s))
}

func isStrongPassword(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string        `json:"email" validate:"required,email,max=254"`
	Password string        `json:"password" validate:"required,min=8,max=72,password"`
	FullName string        `json:"fullName" validate:"required,min=2,max=100"`
	Gender   models.Gender `json:"gender" validate:"required,oneof=male female"`
	Age      int           `json:"age" validate:"required,gte=18,lte=80"`
	City     string        `json:"city" validate:"max=100"`
	Country  string        `json:"country" validate:"max=100"`
	Phone    string        `json:"phone" validate:"omitempty,phone"`
}

func (val *Validator) Register(in RegisterInput) error {
	return val.Struct(in)
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (val *Validator) Login(in LoginInput) error {
	return val.Struct(in)
}

// ProfileUpdate carries only the fields the member wants to change.
type ProfileUpdate struct {
	FullName  *string  `json:"fullName" validate:"omitempty,min=2,max=100"`
	Age       *int     `json:"age" validate:"omitempty,gte=18,lte=80"`
	City      *string  `json:"city" validate:"omitempty,max=100"`
	Country   *string  `json:"country" validate:"omitempty,max=100"`
	Bio       *string  `json:"bio" validate:"omitempty,max=1000"`
	Languages []string `json:"languages" validate:"omitempty,max=10,dive,min=2,max=30"`
	Phone     *string  `json:"phone" validate:"omitempty,phone"`
}

func (val *Validator) Profile(in ProfileUpdate) error {
	return val.Struct(in)
}

// ContactInput is the contact block of a marriage request.
type ContactInput struct {
	Phone         string `json:"phone" validate:"omitempty,phone"`
	Email         string `json:"email" validate:"omitempty,email"`
	Whatsapp      string `json:"whatsapp" validate:"omitempty,phone"`
	GuardianName  string `json:"guardianName" validate:"max=100"`
	GuardianPhone string `json:"guardianPhone" validate:"omitempty,phone"`
}

// Info converts the payload into the stored contact info.
func (c ContactInput) Info() models.ContactInfo {
	return models.ContactInfo{
		Phone:         normalizePhone(c.Phone),
		Email:         strings.TrimSpace(c.Email),
		Whatsapp:      normalizePhone(c.Whatsapp),
		GuardianName:  strings.TrimSpace(c.GuardianName),
		GuardianPhone: normalizePhone(c.GuardianPhone),
	}
}

// RequestInput is the payload of POST /requests/send.
type RequestInput struct {
	ReceiverID string       `json:"receiverId" validate:"required"`
	Message    string       `json:"message" validate:"required,max=1000"`
	Contact    ContactInput `json:"contact"`
}

// Request validates a marriage request: tag rules, the greeting token, the
// minimum message length and the presence of at least one contact channel.
func (val *Validator) Request(in RequestInput) error {
	fields := val.fieldErrors(in)

	msg := strings.TrimSpace(in.Message)
	if msg != "" {
		if !val.HasGreeting(msg) {
			fields = append(fields, apperr.FieldError{
				Field:   "message",
				Message: "must include a greeting such as " + strings.Join(val.policy.GreetingTokens, " / "),
			})
		}
		if n := utf8.RuneCountInString(msg); n < val.policy.MinMessageLength {
			fields = append(fields, apperr.FieldError{
				Field:   "message",
				Message: fmt.Sprintf("must be at least %d characters", val.policy.MinMessageLength),
			})
		}
	}
	if in.Contact.Info().IsEmpty() {
		fields = append(fields, apperr.FieldError{
			Field:   "contact",
			Message: "at least one of phone, email, whatsapp or guardianPhone is required",
		})
	}

	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("invalid marriage request", fields...)
}

// HasGreeting reports whether msg contains one of the configured greetings.
func (val *Validator) HasGreeting(msg string) bool {
	lower := strings.ToLower(msg)
	for _, tok := range val.policy.GreetingTokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// MeetingInput is the payload of POST /requests/:id/meeting.
type MeetingInput struct {
	Type             models.MeetingType `json:"type" validate:"required,oneof=in_person video phone"`
	ProposedAt       time.Time          `json:"proposedAt"`
	Location         string             `json:"location" validate:"max=200"`
	IncludesGuardian bool               `json:"includesGuardian"`
	GuardianName     string             `json:"guardianName" validate:"max=100"`
	GuardianPhone    string             `json:"guardianPhone" validate:"omitempty,phone"`
	Notes            string             `json:"notes" validate:"max=500"`
}

// Meeting validates a meeting proposal against now: the time must be strictly
// in the future, in-person meetings need a location and guardian-inclusive
// meetings need the guardian's name and phone.
func (val *Validator) Meeting(in MeetingInput, now time.Time) error {
	fields := val.fieldErrors(in)

	if in.ProposedAt.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "proposedAt", Message: "is required"})
	} else if !in.ProposedAt.After(now) {
		fields = append(fields, apperr.FieldError{Field: "proposedAt", Message: "must be in the future"})
	}
	if in.Type == models.MeetingInPerson && strings.TrimSpace(in.Location) == "" {
		fields = append(fields, apperr.FieldError{Field: "location", Message: "is required for in-person meetings"})
	}
	if in.IncludesGuardian {
		if strings.TrimSpace(in.GuardianName) == "" {
			fields = append(fields, apperr.FieldError{Field: "guardianName", Message: "is required when a guardian attends"})
		}
		if strings.TrimSpace(in.GuardianPhone) == "" {
			fields = append(fields, apperr.FieldError{Field: "guardianPhone", Message: "is required when a guardian attends"})
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("invalid meeting arrangement", fields...)
}

// ReportInput is the payload of POST /reports.
type ReportInput struct {
	ReportedUserID string `json:"reportedUserId" validate:"required"`
	Reason         string `json:"reason" validate:"required,oneof=fake_profile harassment inappropriate_content spam scam other"`
	Details        string `json:"details" validate:"max=1000"`
}

func (val *Validator) Report(in ReportInput) error {
	return val.Struct(in)
}

// MessageInput is a chat message payload.
type MessageInput struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

func (val *Validator) Message(in MessageInput) error {
	return val.Struct(in)
}

// BookmarkInput is the optional body of POST /bookmarks/:userId.
type BookmarkInput struct {
	Note string `json:"note" validate:"max=300"`
}

func (val *Validator) Bookmark(in BookmarkInput) error {
	return val.Struct(in)
}
