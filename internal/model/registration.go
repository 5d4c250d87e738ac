package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryVisitor        Category = "Visitor"
	CategoryArtist         Category = "Artist"
	CategoryStallExhibitor Category = "Stall Exhibitor"
	CategoryFoodVendor     Category = "Food Vendor"
	CategoryMedia          Category = "Media"
	CategoryVolunteer      Category = "Volunteer"
	CategorySponsor        Category = "Sponsor"
)

var Categories = []Category{
	CategoryVisitor,
	CategoryArtist,
	CategoryStallExhibitor,
	CategoryFoodVendor,
	CategoryMedia,
	CategoryVolunteer,
	CategorySponsor,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusPendingReview       Status = "pending_review"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
)

// Registration is the common envelope shared by every participant category.
// Category-specific attributes live in Details, selected by Category.
type Registration struct {
	ID           uuid.UUID
	Category     Category
	Email        string
	Phone        string
	FullName     string
	Organization string

	IsEmailVerified bool
	Status          Status

	QRID        *string
	IsCheckedIn bool
	CheckInTime *time.Time

	VerificationOTP *string
	OTPExpires      *time.Time
	RejectionReason *string

	DocumentKey *string
	Details     Details

	CreatedAt time.Time
	UpdatedAt time.Time
}

var ErrUnknownCategory = errors.New("unknown registration category")

// Details is the category-specific payload. Exactly one implementation exists
// per Category; decoding is keyed by the envelope's category so fields from
// another category cannot be smuggled in.
type Details interface {
	DetailsCategory() Category
}

type VisitorDetails struct {
	AttendanceDay  string   `json:"attendanceDay,omitempty"`
	Interests      []string `json:"interests,omitempty"`
	ReferralSource string   `json:"referralSource,omitempty"`
}

func (VisitorDetails) DetailsCategory() Category { return CategoryVisitor }

type ArtistDetails struct {
	ArtistName             string `json:"artistName,omitempty"`
	ArtForm                string `json:"artForm,omitempty"`
	PerformanceType        string `json:"performanceType,omitempty" validate:"omitempty,oneof=Solo Group"`
	GroupSize              int    `json:"groupSize,omitempty" validate:"omitempty,min=1"`
	PortfolioURL           string `json:"portfolioUrl,omitempty" validate:"omitempty,url"`
	PerformanceDescription string `json:"performanceDescription,omitempty"`
	ExpectedHonorarium     int    `json:"expectedHonorarium,omitempty" validate:"omitempty,min=0"`
}

func (ArtistDetails) DetailsCategory() Category { return CategoryArtist }

type StallExhibitorDetails struct {
	BusinessName      string `json:"businessName,omitempty"`
	TypeOfStall       string `json:"typeOfStall,omitempty"`
	ProductsToDisplay string `json:"productsToDisplay,omitempty"`
}

func (StallExhibitorDetails) DetailsCategory() Category { return CategoryStallExhibitor }

type FoodVendorDetails struct {
	BusinessName string `json:"businessName,omitempty"`
	StateCuisine string `json:"stateCuisine,omitempty"`
	FoodItems    string `json:"foodItems,omitempty"`
}

func (FoodVendorDetails) DetailsCategory() Category { return CategoryFoodVendor }

type MediaDetails struct {
	MediaHouseName string `json:"mediaHouseName,omitempty"`
	MediaType      string `json:"mediaType,omitempty"`
}

func (MediaDetails) DetailsCategory() Category { return CategoryMedia }

type VolunteerDetails struct {
	Availability  []string `json:"availability,omitempty"`
	PreferredRole string   `json:"preferredRole,omitempty"`
}

func (VolunteerDetails) DetailsCategory() Category { return CategoryVolunteer }

type SponsorDetails struct {
	CompanyName      string `json:"companyName,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Department       string `json:"department,omitempty"`
	InterestedAs     string `json:"interestedAs,omitempty"`
	ReasonForJoining string `json:"reasonForJoining,omitempty"`
}

func (SponsorDetails) DetailsCategory() Category { return CategorySponsor }

// DecodeDetails unmarshals the category-specific payload for the given
// category. Unknown JSON fields are rejected so one category's attributes
// cannot be set through another category's registration.
func DecodeDetails(category Category, raw []byte) (Details, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	var details Details
	switch category {
	case CategoryVisitor:
		details = &VisitorDetails{}
	case CategoryArtist:
		details = &ArtistDetails{}
	case CategoryStallExhibitor:
		details = &StallExhibitorDetails{}
	case CategoryFoodVendor:
		details = &FoodVendorDetails{}
	case CategoryMedia:
		details = &MediaDetails{}
	case CategoryVolunteer:
		details = &VolunteerDetails{}
	case CategorySponsor:
		details = &SponsorDetails{}
	default:
		return nil, ErrUnknownCategory
	}

	if err := json.Unmarshal(raw, details); err != nil {
		return nil, fmt.Errorf("decode %s details: %w", category, err)
	}
	return deref(details), nil
}

func EncodeDetails(details Details) ([]byte, error) {
	if details == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(details)
}

func deref(details Details) Details {
	switch d := details.(type) {
	case *VisitorDetails:
		return *d
	case *ArtistDetails:
		return *d
	case *StallExhibitorDetails:
		return *d
	case *FoodVendorDetails:
		return *d
	case *MediaDetails:
		return *d
	case *VolunteerDetails:
		return *d
	case *SponsorDetails:
		return *d
	}
	return details
}

// DisplayName picks the most specific name available for email personalization.
func (r *Registration) DisplayName() string {
	if artist, ok := r.Details.(ArtistDetails); ok && artist.ArtistName != "" {
		return artist.ArtistName
	}
	if r.FullName != "" {
		return r.FullName
	}
	return "Participant"
}
