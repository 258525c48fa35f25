package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Record is one domain record as returned by the backend's list and get
// endpoints. Records stay untyped on purpose: the table engine is defined
// over arbitrary key→value rows, and the dashboard passes backend fields
// through without interpreting most of them.
type Record = map[string]any

// escape path-encodes a record ID supplied by a request.
func escape(id string) string {
	return url.PathEscape(id)
}

// --- Students -------------------------------------------------------------

// ListStudents returns all students with their profiles. Admin token
// required.
func (c *Client) ListStudents(ctx context.Context, token string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/students", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStudent returns one student by ID.
func (c *Client) GetStudent(ctx context.Context, token, id string) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodGet, "/students/"+escape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStudentProfile applies a partial profile update and returns the
// updated profile.
func (c *Client) UpdateStudentProfile(ctx context.Context, token, id string, fields Record) (Record, error) {
	var out Record
	path := fmt.Sprintf("/students/%s/profile", escape(id))
	if err := c.do(ctx, http.MethodPut, path, token, fields, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignProgramStage sets a student's program stage (the "bucket").
func (c *Client) AssignProgramStage(ctx context.Context, token, id, stage string) error {
	path := fmt.Sprintf("/students/%s/program-status", escape(id))
	body := map[string]string{"bucket": stage}
	return c.do(ctx, http.MethodPut, path, token, body, nil)
}

// BulkAssignProgramStage sets the program stage for several students at
// once.
func (c *Client) BulkAssignProgramStage(ctx context.Context, token string, ids []string, stage string) error {
	body := map[string]any{
		"student_ids": ids,
		"bucket":      stage,
	}
	return c.do(ctx, http.MethodPut, "/students/bulk/program-status", token, body, nil)
}

// DeleteStudent removes a student account.
func (c *Client) DeleteStudent(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/students/"+escape(id), token, nil, nil)
}

// --- Admin accounts -------------------------------------------------------

// ListAdmins returns all administrator accounts.
func (c *Client) ListAdmins(ctx context.Context, token string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/admin/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAdminInput is a new administrator account. The backend generates
// and emails the initial password.
type CreateAdminInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// CreateAdmin creates an administrator account and returns it.
func (c *Client) CreateAdmin(ctx context.Context, token string, in CreateAdminInput) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPost, "/admin/users", token, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResetAdminPassword triggers a password reset for an administrator.
func (c *Client) ResetAdminPassword(ctx context.Context, token, id string) error {
	path := fmt.Sprintf("/admin/users/%s/reset-password", escape(id))
	return c.do(ctx, http.MethodPost, path, token, nil, nil)
}

// --- Announcements --------------------------------------------------------

// ListAnnouncements returns all announcements, newest first per the
// backend's ordering.
func (c *Client) ListAnnouncements(ctx context.Context, token string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/announcements", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AnnouncementInput is the create/update payload for an announcement.
type AnnouncementInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CreateAnnouncement publishes a new announcement.
func (c *Client) CreateAnnouncement(ctx context.Context, token string, in AnnouncementInput) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPost, "/announcements", token, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAnnouncement edits an existing announcement.
func (c *Client) UpdateAnnouncement(ctx context.Context, token, id string, in AnnouncementInput) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPut, "/announcements/"+escape(id), token, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAnnouncement removes an announcement.
func (c *Client) DeleteAnnouncement(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/announcements/"+escape(id), token, nil, nil)
}

// --- Posts ----------------------------------------------------------------

// ListPosts returns student posts with their comments and likes.
func (c *Client) ListPosts(ctx context.Context, token string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/posts", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Email notification subscriptions ------------------------------------

// ListNotifications returns all email notification subscriptions.
func (c *Client) ListNotifications(ctx context.Context, token string) ([]Record, error) {
	var out []Record
	if err := c.do(ctx, http.MethodGet, "/email-notifications", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NotificationInput is a new email notification subscription.
type NotificationInput struct {
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
}

// CreateNotification subscribes an address.
func (c *Client) CreateNotification(ctx context.Context, token string, in NotificationInput) (Record, error) {
	var out Record
	if err := c.do(ctx, http.MethodPost, "/email-notifications", token, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleNotification flips a subscription's active flag and returns the
// updated record.
func (c *Client) ToggleNotification(ctx context.Context, token, id string) (Record, error) {
	var out Record
	path := fmt.Sprintf("/email-notifications/%s/toggle", escape(id))
	if err := c.do(ctx, http.MethodPut, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteNotification removes a subscription.
func (c *Client) DeleteNotification(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/email-notifications/"+escape(id), token, nil, nil)
}
