package registration

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"saazebharat/internal/database"
	"saazebharat/internal/model"

	"github.com/google/uuid"
)

const (
	defaultPageSize    = 10
	maxPageSize        = 100
	defaultExportLimit = 5000
	analyticsCacheKey  = "analytics:registrations"
	analyticsCacheTTL  = time.Minute
)

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (model.Registration, error) {
	return m.store.GetRegistrationByID(ctx, id)
}

type ListInput struct {
	Category      string
	Status        string
	AttendanceDay string
	Search        string
	Page          int
	Limit         int
}

type Page struct {
	Registrations []model.Registration
	Total         int64
	Page          int
	Limit         int
	TotalPages    int
}

// List returns one page of verified registrations, newest first.
func (m *Manager) List(ctx context.Context, input ListInput) (Page, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = defaultPageSize
	}
	if input.Limit > maxPageSize {
		input.Limit = maxPageSize
	}

	regs, total, err := m.store.ListRegistrations(ctx, database.ListRegistrationsParams{
		Category:      input.Category,
		Status:        input.Status,
		AttendanceDay: input.AttendanceDay,
		Search:        input.Search,
		Page:          input.Page,
		Limit:         input.Limit,
	})
	if err != nil {
		return Page{}, err
	}

	totalPages := int((total + int64(input.Limit) - 1) / int64(input.Limit))
	return Page{
		Registrations: regs,
		Total:         total,
		Page:          input.Page,
		Limit:         input.Limit,
		TotalPages:    totalPages,
	}, nil
}

type Analytics struct {
	Total         int64                    `json:"total"`
	GrowthToday   int64                    `json:"growthToday"`
	CategoryStats []database.CategoryCount `json:"categoryStats"`
	Trend         []database.TrendPoint    `json:"trend"`
}

// GetAnalytics aggregates the dashboard numbers: verified total, sign-ups in
// the last 24 hours, per-category counts and a 7-day trend. Results are cached
// briefly when a cache is configured.
func (m *Manager) GetAnalytics(ctx context.Context) (Analytics, error) {
	if m.cache != nil {
		if raw, err := m.cache.Get(ctx, analyticsCacheKey).Bytes(); err == nil {
			var cached Analytics
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	now := time.Now()

	total, err := m.store.CountVerified(ctx)
	if err != nil {
		return Analytics{}, err
	}
	growth, err := m.store.CountVerifiedSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return Analytics{}, err
	}
	stats, err := m.store.CategoryCounts(ctx)
	if err != nil {
		return Analytics{}, err
	}
	trend, err := m.store.DailyTrend(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return Analytics{}, err
	}

	analytics := Analytics{
		Total:         total,
		GrowthToday:   growth,
		CategoryStats: stats,
		Trend:         trend,
	}

	if m.cache != nil {
		if raw, err := json.Marshal(analytics); err == nil {
			if err := m.cache.Set(ctx, analyticsCacheKey, raw, analyticsCacheTTL).Err(); err != nil {
				m.logger.Debug("analytics cache write failed", "error", err)
			}
		}
	}
	return analytics, nil
}

type ExportInput struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	From      int // 1-based inclusive row range; 0 means unset
	To        int
}

var exportHeader = []string{
	"Registration ID", "QR ID", "Full Name", "Email", "Phone", "Category",
	"Organization", "Status", "Checked In", "Check-In Time", "Registered At",
	"Rejection Reason", "Attendance Day", "Interests", "Referral Source",
	"Artist Name", "Art Form", "Performance Type", "Group Size", "Portfolio URL",
	"Performance Description", "Expected Honorarium", "Business Name",
	"Type Of Stall", "Products To Display", "State Cuisine", "Food Items",
	"Media House Name", "Media Type", "Availability", "Preferred Role",
	"Company Name", "Industry", "Department", "Interested As", "Reason For Joining",
}

// ExportCSV renders verified registrations as a flat CSV, oldest first.
// Fields that do not apply to a row's category are filled with N/A.
func (m *Manager) ExportCSV(ctx context.Context, input ExportInput) ([]byte, error) {
	offset := 0
	limit := defaultExportLimit
	if input.From > 0 {
		offset = input.From - 1
		if input.To >= input.From {
			limit = input.To - input.From + 1
		}
	}

	regs, err := m.store.ExportRegistrations(ctx, database.ExportParams{
		Category:  input.Category,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, ErrNoExportRows
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for i := range regs {
		if err := w.Write(exportRow(&regs[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportRow(reg *model.Registration) []string {
	row := []string{
		reg.ID.String(),
		orNA(deref(reg.QRID)),
		orNA(reg.FullName),
		reg.Email,
		orNA(reg.Phone),
		string(reg.Category),
		orNA(reg.Organization),
		string(reg.Status),
		strconv.FormatBool(reg.IsCheckedIn),
		orNA(formatTime(reg.CheckInTime)),
		reg.CreatedAt.Format(time.RFC3339),
		orNA(deref(reg.RejectionReason)),
	}

	detail := map[string]string{}
	switch d := reg.Details.(type) {
	case model.VisitorDetails:
		detail["Attendance Day"] = d.AttendanceDay
		detail["Interests"] = strings.Join(d.Interests, "; ")
		detail["Referral Source"] = d.ReferralSource
	case model.ArtistDetails:
		detail["Artist Name"] = d.ArtistName
		detail["Art Form"] = d.ArtForm
		detail["Performance Type"] = d.PerformanceType
		detail["Group Size"] = formatInt(d.GroupSize)
		detail["Portfolio URL"] = d.PortfolioURL
		detail["Performance Description"] = d.PerformanceDescription
		detail["Expected Honorarium"] = formatInt(d.ExpectedHonorarium)
	case model.StallExhibitorDetails:
		detail["Business Name"] = d.BusinessName
		detail["Type Of Stall"] = d.TypeOfStall
		detail["Products To Display"] = d.ProductsToDisplay
	case model.FoodVendorDetails:
		detail["Business Name"] = d.BusinessName
		detail["State Cuisine"] = d.StateCuisine
		detail["Food Items"] = d.FoodItems
	case model.MediaDetails:
		detail["Media House Name"] = d.MediaHouseName
		detail["Media Type"] = d.MediaType
	case model.VolunteerDetails:
		detail["Availability"] = strings.Join(d.Availability, "; ")
		detail["Preferred Role"] = d.PreferredRole
	case model.SponsorDetails:
		detail["Company Name"] = d.CompanyName
		detail["Industry"] = d.Industry
		detail["Department"] = d.Department
		detail["Interested As"] = d.InterestedAs
		detail["Reason For Joining"] = d.ReasonForJoining
	}

	for _, column := range exportHeader[len(row):] {
		row = append(row, orNA(detail[column]))
	}
	return row
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
