package api

import (
	"time"

	"saazebharat/internal/model"
)

type registrationResponse struct {
	ID              string        `json:"id"`
	Category        model.Category `json:"category"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	FullName        string        `json:"fullName"`
	Organization    string        `json:"organization,omitempty"`
	IsEmailVerified bool          `json:"isEmailVerified"`
	Status          model.Status  `json:"status"`
	QRID            *string       `json:"qrId,omitempty"`
	IsCheckedIn     bool          `json:"isCheckedIn"`
	CheckInTime     *time.Time    `json:"checkInTime,omitempty"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	Details         model.Details `json:"details,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func toRegistrationResponse(reg model.Registration) registrationResponse {
	return registrationResponse{
		ID:              reg.ID.String(),
		Category:        reg.Category,
		Email:           reg.Email,
		Phone:           reg.Phone,
		FullName:        reg.FullName,
		Organization:    reg.Organization,
		IsEmailVerified: reg.IsEmailVerified,
		Status:          reg.Status,
		QRID:            reg.QRID,
		IsCheckedIn:     reg.IsCheckedIn,
		CheckInTime:     reg.CheckInTime,
		RejectionReason: reg.RejectionReason,
		Details:         reg.Details,
		CreatedAt:       reg.CreatedAt,
		UpdatedAt:       reg.UpdatedAt,
	}
}

func toRegistrationResponses(regs []model.Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toRegistrationResponse(reg))
	}
	return out
}

type adminResponse struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toAdminResponse(account model.AdminAccount) adminResponse {
	return adminResponse{
		ID:        account.ID.String(),
		Username:  account.Username,
		Email:     account.Email,
		Role:      account.Role,
		LastLogin: account.LastLogin,
		CreatedAt: account.CreatedAt,
	}
}

type contentResponse struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Section string `json:"section"`
}

func toContentResponse(entry model.ContentEntry) contentResponse {
	return contentResponse{Key: entry.Key, Value: entry.Value, Section: entry.Section}
}

type auditResponse struct {
	ID         string     `json:"id"`
	AdminID    *string    `json:"adminId,omitempty"`
	Action     string     `json:"action"`
	TargetID   *string    `json:"targetId,omitempty"`
	TargetType *string    `json:"targetType,omitempty"`
	Details    any        `json:"details,omitempty"`
	IPAddress  string     `json:"ipAddress,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toAuditResponse(entry model.AuditEntry) auditResponse {
	resp := auditResponse{
		ID:         entry.ID.String(),
		Action:     entry.Action,
		TargetID:   entry.TargetID,
		TargetType: entry.TargetType,
		IPAddress:  entry.IPAddress,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.AdminID != nil {
		id := entry.AdminID.String()
		resp.AdminID = &id
	}
	if len(entry.Details) > 0 {
		resp.Details = entry.Details
	}
	return resp
}
