package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"provdesk/internal/models"

	"github.com/google/uuid"
)

// firebaseAdapter talks to Firebase over its REST surface: the Identity
// Toolkit for password credentials and Firestore for documents. No SDK is
// linked; the adapter only needs the project ID and a Web API key.
type firebaseAdapter struct {
	client *firestoreClient
	store  *Store
}

func NewFirebaseAdapter(projectID, apiKey string, httpClient *http.Client) Adapter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	fc := &firestoreClient{
		projectID: projectID,
		apiKey:    apiKey,
		http:      httpClient,
	}
	users := &firestoreUserRepo{client: fc}
	return &firebaseAdapter{
		client: fc,
		store: &Store{
			Users:         users,
			Requests:      &firestoreRequestRepo{client: fc},
			Activities:    &firestoreActivityRepo{client: fc},
			Notifications: &firestoreNotificationRepo{client: fc},
		},
	}
}

func (a *firebaseAdapter) Name() string { return "firebase" }

func (a *firebaseAdapter) Store() *Store { return a.store }

func (a *firebaseAdapter) Authenticate(ctx context.Context, creds Credentials) (*models.User, error) {
	if creds.GoogleID == "" {
		// Delegate the password check to the Identity Toolkit; the profile
		// document still decides the approval gate.
		if err := a.client.signInWithPassword(ctx, creds.Email, creds.Password); err != nil {
			return nil, err
		}
	}

	user, err := a.store.Users.GetByEmail(ctx, creds.Email)
	if err != nil {
		return nil, err
	}
	if user.Status != models.StatusApproved {
		return nil, &models.AccountNotApprovedError{Status: user.Status}
	}
	return user, nil
}

func (a *firebaseAdapter) CreateAccount(ctx context.Context, profile Profile) (*models.User, error) {
	if profile.Password != "" {
		if err := a.client.signUp(ctx, profile.Email, profile.Password); err != nil {
			return nil, err
		}
	}
	user := newUserFromProfile(profile, models.StatusPending)
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *firebaseAdapter) CreateApprovedAccount(ctx context.Context, profile Profile, approvedBy string) (*models.User, error) {
	if profile.Password != "" {
		if err := a.client.signUp(ctx, profile.Email, profile.Password); err != nil {
			return nil, err
		}
	}
	user := newUserFromProfile(profile, models.StatusApproved)
	now := time.Now()
	user.ApprovedAt = &now
	user.ApprovedBy = &approvedBy
	if err := a.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *firebaseAdapter) FetchUserStatus(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := a.store.Users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

func (a *firebaseAdapter) LogActivity(ctx context.Context, rec *models.ActivityRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return a.store.Activities.Create(ctx, rec)
}

func (a *firebaseAdapter) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return a.store.Users.TouchLastLogin(ctx, id)
}

// firestoreClient is a minimal REST client for the Firestore document API.

type firestoreClient struct {
	projectID string
	apiKey    string
	http      *http.Client
}

type fsValue map[string]interface{}
type fsFields map[string]fsValue

func fsString(s string) fsValue { return fsValue{"stringValue": s} }
func fsBool(b bool) fsValue { return fsValue{"booleanValue": b} }
func fsTime(t time.Time) fsValue { return fsValue{"timestampValue": t.UTC().Format(time.RFC3339Nano)} }

func fsOptString(s *string, fields fsFields, name string) {
	if s != nil {
		fields[name] = fsString(*s)
	}
}

func fsOptTime(t *time.Time, fields fsFields, name string) {
	if t != nil {
		fields[name] = fsTime(*t)
	}
}

func str(fields fsFields, name string) string {
	if v, ok := fields[name]; ok {
		if s, ok := v["stringValue"].(string); ok {
			return s
		}
	}
	return ""
}

func optStr(fields fsFields, name string) *string {
	if s := str(fields, name); s != "" {
		return &s
	}
	return nil
}

func boolean(fields fsFields, name string) bool {
	if v, ok := fields[name]; ok {
		if b, ok := v["booleanValue"].(bool); ok {
			return b
		}
	}
	return false
}

func ts(fields fsFields, name string) time.Time {
	if v, ok := fields[name]; ok {
		if s, ok := v["timestampValue"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func optTs(fields fsFields, name string) *time.Time {
	t := ts(fields, name)
	if t.IsZero() {
		return nil
	}
	return &t
}

func (c *firestoreClient) baseURL() string {
	return fmt.Sprintf("https://firestore.googleapis.com/v1/projects/%s/databases/(default)/documents", c.projectID)
}

func (c *firestoreClient) do(ctx context.Context, method, rawURL string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrUserNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: firestore responded %d: %s", models.ErrBackendUnavailable, resp.StatusCode, truncate(data))
	}
	return data, nil
}

func truncate(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}

func (c *firestoreClient) createDoc(ctx context.Context, collection, docID string, fields fsFields) error {
	u := fmt.Sprintf("%s/%s?documentId=%s&key=%s", c.baseURL(), collection, url.QueryEscape(docID), c.apiKey)
	_, err := c.do(ctx, http.MethodPost, u, map[string]interface{}{"fields": fields})
	return err
}

func (c *firestoreClient) getDoc(ctx context.Context, collection, docID string) (fsFields, error) {
	u := fmt.Sprintf("%s/%s/%s?key=%s", c.baseURL(), collection, url.QueryEscape(docID), c.apiKey)
	data, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Fields fsFields `json:"fields"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// patchDoc updates only the named fields, leaving the rest of the document
// untouched.
func (c *firestoreClient) patchDoc(ctx context.Context, collection, docID string, fields fsFields) error {
	params := url.Values{"key": {c.apiKey}}
	for name := range fields {
		params.Add("updateMask.fieldPaths", name)
	}
	u := fmt.Sprintf("%s/%s/%s?%s", c.baseURL(), collection, url.QueryEscape(docID), params.Encode())
	_, err := c.do(ctx, http.MethodPatch, u, map[string]interface{}{"fields": fields})
	return err
}

type fsFilter struct {
	field string
	op    string // EQUAL, GREATER_THAN_OR_EQUAL, LESS_THAN_OR_EQUAL
	value fsValue
}

func (c *firestoreClient) runQuery(ctx context.Context, collection string, filters []fsFilter, orderDesc string, limit int) ([]struct {
	ID     string
	Fields fsFields
}, error) {
	query := map[string]interface{}{
		"from": []map[string]interface{}{{"collectionId": collection}},
	}
	if len(filters) == 1 {
		query["where"] = fieldFilter(filters[0])
	} else if len(filters) > 1 {
		parts := make([]map[string]interface{}, 0, len(filters))
		for _, f := range filters {
			parts = append(parts, fieldFilter(f))
		}
		query["where"] = map[string]interface{}{
			"compositeFilter": map[string]interface{}{"op": "AND", "filters": parts},
		}
	}
	if orderDesc != "" {
		query["orderBy"] = []map[string]interface{}{{
			"field":     map[string]interface{}{"fieldPath": orderDesc},
			"direction": "DESCENDING",
		}}
	}
	if limit > 0 {
		query["limit"] = limit
	}

	u := fmt.Sprintf("%s:runQuery?key=%s", c.baseURL(), c.apiKey)
	data, err := c.do(ctx, http.MethodPost, u, map[string]interface{}{"structuredQuery": query})
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Document *struct {
			Name   string   `json:"name"`
			Fields fsFields `json:"fields"`
		} `json:"document"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	var out []struct {
		ID     string
		Fields fsFields
	}
	for _, row := range rows {
		if row.Document == nil {
			continue
		}
		name := row.Document.Name
		out = append(out, struct {
			ID     string
			Fields fsFields
		}{ID: name[strings.LastIndex(name, "/")+1:], Fields: row.Document.Fields})
	}
	return out, nil
}

func fieldFilter(f fsFilter) map[string]interface{} {
	return map[string]interface{}{
		"fieldFilter": map[string]interface{}{
			"field": map[string]interface{}{"fieldPath": f.field},
			"op":    f.op,
			"value": f.value,
		},
	}
}

// Identity Toolkit credential endpoints.

func (c *firestoreClient) identityCall(ctx context.Context, endpoint, email, password string) error {
	u := fmt.Sprintf("https://identitytoolkit.googleapis.com/v1/accounts:%s?key=%s", endpoint, c.apiKey)
	payload := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": false,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	msg := string(body)
	switch {
	case strings.Contains(msg, "EMAIL_NOT_FOUND"):
		return models.ErrUserNotFound
	case strings.Contains(msg, "INVALID_PASSWORD"), strings.Contains(msg, "INVALID_LOGIN_CREDENTIALS"):
		return models.ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: identity toolkit responded %d", models.ErrBackendUnavailable, resp.StatusCode)
	}
}

func (c *firestoreClient) signInWithPassword(ctx context.Context, email, password string) error {
	return c.identityCall(ctx, "signInWithPassword", email, password)
}

func (c *firestoreClient) signUp(ctx context.Context, email, password string) error {
	return c.identityCall(ctx, "signUp", email, password)
}

// Firestore-backed repositories.

const (
	colUsers         = "users"
	colRequests      = "access_requests"
	colActivities    = "user_activities"
	colNotifications = "admin_notifications"
)

type firestoreUserRepo struct {
	client *firestoreClient
}

func userFields(u *models.User) fsFields {
	fields := fsFields{
		"email":      fsString(u.Email),
		"name":       fsString(u.Name),
		"status":     fsString(u.Status),
		"created_at": fsTime(u.CreatedAt),
	}
	fsOptString(u.PhotoURL, fields, "photo_url")
	fsOptString(u.Company, fields, "company")
	fsOptString(u.GoogleID, fields, "google_id")
	if u.PasswordHash != "" {
		fields["password_hash"] = fsString(u.PasswordHash)
	}
	fsOptTime(u.LastLogin, fields, "last_login")
	fsOptTime(u.ApprovedAt, fields, "approved_at")
	fsOptString(u.ApprovedBy, fields, "approved_by")
	fsOptTime(u.RejectedAt, fields, "rejected_at")
	fsOptString(u.RejectionReason, fields, "rejection_reason")
	fsOptTime(u.SuspendedAt, fields, "suspended_at")
	fsOptString(u.SuspensionReason, fields, "suspension_reason")
	fsOptTime(u.ReactivatedAt, fields, "reactivated_at")
	return fields
}

func userFromFields(id string, fields fsFields) *models.User {
	uid, _ := uuid.Parse(id)
	return &models.User{
		ID:               uid,
		Email:            str(fields, "email"),
		Name:             str(fields, "name"),
		PhotoURL:         optStr(fields, "photo_url"),
		Company:          optStr(fields, "company"),
		GoogleID:         optStr(fields, "google_id"),
		PasswordHash:     str(fields, "password_hash"),
		Status:           str(fields, "status"),
		CreatedAt:        ts(fields, "created_at"),
		LastLogin:        optTs(fields, "last_login"),
		ApprovedAt:       optTs(fields, "approved_at"),
		ApprovedBy:       optStr(fields, "approved_by"),
		RejectedAt:       optTs(fields, "rejected_at"),
		RejectionReason:  optStr(fields, "rejection_reason"),
		SuspendedAt:      optTs(fields, "suspended_at"),
		SuspensionReason: optStr(fields, "suspension_reason"),
		ReactivatedAt:    optTs(fields, "reactivated_at"),
	}
}

func (r *firestoreUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return fmt.Errorf("user with email '%s' already exists", user.Email)
	}
	return r.client.createDoc(ctx, colUsers, user.ID.String(), userFields(user))
}

func (r *firestoreUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	fields, err := r.client.getDoc(ctx, colUsers, id.String())
	if err != nil {
		return nil, err
	}
	return userFromFields(id.String(), fields), nil
}

func (r *firestoreUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	rows, err := r.client.runQuery(ctx, colUsers, []fsFilter{{"email", "EQUAL", fsString(email)}}, "", 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrUserNotFound
	}
	return userFromFields(rows[0].ID, rows[0].Fields), nil
}

func (r *firestoreUserRepo) Update(ctx context.Context, user *models.User) error {
	fields := userFields(user)
	delete(fields, "created_at") // immutable
	// cleared approval fields must be removed from the document too
	for _, name := range []string{"approved_at", "approved_by", "rejected_at", "rejection_reason",
		"suspended_at", "suspension_reason", "reactivated_at", "last_login"} {
		if _, ok := fields[name]; !ok {
			fields[name] = fsValue{"nullValue": nil}
		}
	}
	return r.client.patchDoc(ctx, colUsers, user.ID.String(), fields)
}

func (r *firestoreUserRepo) List(ctx context.Context, status string, limit, offset int) ([]*models.User, error) {
	var filters []fsFilter
	if status != "" && status != "all" {
		filters = append(filters, fsFilter{"status", "EQUAL", fsString(status)})
	}
	rows, err := r.client.runQuery(ctx, colUsers, filters, "created_at", limit+offset)
	if err != nil {
		return nil, err
	}
	var users []*models.User
	for _, row := range rows {
		users = append(users, userFromFields(row.ID, row.Fields))
	}
	if offset >= len(users) {
		return nil, nil
	}
	return users[offset:], nil
}

func (r *firestoreUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Status != models.StatusApproved {
		return nil
	}
	return r.client.patchDoc(ctx, colUsers, id.String(), fsFields{"last_login": fsTime(time.Now())})
}

func (r *firestoreUserRepo) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.client.runQuery(ctx, colUsers, nil, "", 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, row := range rows {
		counts[str(row.Fields, "status")]++
	}
	return counts, nil
}

type firestoreRequestRepo struct {
	client *firestoreClient
}

func requestFromFields(id string, fields fsFields) *models.AccessRequest {
	rid, _ := uuid.Parse(id)
	req := &models.AccessRequest{
		ID:          rid,
		Name:        str(fields, "name"),
		Email:       str(fields, "email"),
		Company:     str(fields, "company"),
		Reason:      str(fields, "reason"),
		IP:          optStr(fields, "ip"),
		CreatedAt:   ts(fields, "created_at"),
		Processed:   boolean(fields, "processed"),
		Approved:    boolean(fields, "approved"),
		AdminNotes:  optStr(fields, "admin_notes"),
		ProcessedAt: optTs(fields, "processed_at"),
		ProcessedBy: optStr(fields, "processed_by"),
	}
	return req
}

func (r *firestoreRequestRepo) Create(ctx context.Context, req *models.AccessRequest) error {
	fields := fsFields{
		"name":       fsString(req.Name),
		"email":      fsString(req.Email),
		"company":    fsString(req.Company),
		"reason":     fsString(req.Reason),
		"created_at": fsTime(time.Now()),
		"processed":  fsBool(false),
	}
	fsOptString(req.IP, fields, "ip")
	return r.client.createDoc(ctx, colRequests, req.ID.String(), fields)
}

func (r *firestoreRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	fields, err := r.client.getDoc(ctx, colRequests, id.String())
	if err != nil {
		return nil, err
	}
	return requestFromFields(id.String(), fields), nil
}

func (r *firestoreRequestRepo) List(ctx context.Context, onlyUnprocessed bool, limit, offset int) ([]*models.AccessRequest, error) {
	var filters []fsFilter
	if onlyUnprocessed {
		filters = append(filters, fsFilter{"processed", "EQUAL", fsBool(false)})
	}
	rows, err := r.client.runQuery(ctx, colRequests, filters, "created_at", limit+offset)
	if err != nil {
		return nil, err
	}
	var requests []*models.AccessRequest
	for _, row := range rows {
		requests = append(requests, requestFromFields(row.ID, row.Fields))
	}
	if offset >= len(requests) {
		return nil, nil
	}
	return requests[offset:], nil
}

func (r *firestoreRequestRepo) MarkProcessed(ctx context.Context, id uuid.UUID, approved bool, notes, processedBy string) (bool, error) {
	// Read-then-patch; a single-admin deployment does not need a transaction
	req, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if req.Processed {
		return false, nil
	}
	fields := fsFields{
		"processed":    fsBool(true),
		"approved":     fsBool(approved),
		"admin_notes":  fsString(notes),
		"processed_at": fsTime(time.Now()),
		"processed_by": fsString(processedBy),
	}
	if err := r.client.patchDoc(ctx, colRequests, id.String(), fields); err != nil {
		return false, err
	}
	return true, nil
}

type firestoreActivityRepo struct {
	client *firestoreClient
}

func (r *firestoreActivityRepo) Create(ctx context.Context, rec *models.ActivityRecord) error {
	fields := fsFields{
		"action":     fsString(rec.Action),
		"created_at": fsTime(time.Now()),
	}
	if rec.UserID != nil {
		fields["user_id"] = fsString(rec.UserID.String())
	}
	fsOptString(rec.IP, fields, "ip")
	fsOptString(rec.UserAgent, fields, "user_agent")
	fsOptString(rec.Reason, fields, "reason")
	return r.client.createDoc(ctx, colActivities, rec.ID.String(), fields)
}

func (r *firestoreActivityRepo) Query(ctx context.Context, filter *models.ActivityFilter, limit int) ([]*models.ActivityRecord, error) {
	if filter == nil {
		filter = &models.ActivityFilter{}
	}
	var filters []fsFilter
	if filter.UserID != nil {
		filters = append(filters, fsFilter{"user_id", "EQUAL", fsString(filter.UserID.String())})
	}
	if filter.Action != nil {
		filters = append(filters, fsFilter{"action", "EQUAL", fsString(*filter.Action)})
	}
	if filter.Since != nil {
		filters = append(filters, fsFilter{"created_at", "GREATER_THAN_OR_EQUAL", fsTime(*filter.Since)})
	}
	rows, err := r.client.runQuery(ctx, colActivities, filters, "created_at", limit)
	if err != nil {
		return nil, err
	}
	var records []*models.ActivityRecord
	for _, row := range rows {
		rec := &models.ActivityRecord{
			Action:    str(row.Fields, "action"),
			IP:        optStr(row.Fields, "ip"),
			UserAgent: optStr(row.Fields, "user_agent"),
			Reason:    optStr(row.Fields, "reason"),
			CreatedAt: ts(row.Fields, "created_at"),
		}
		rec.ID, _ = uuid.Parse(row.ID)
		if s := str(row.Fields, "user_id"); s != "" {
			if uid, err := uuid.Parse(s); err == nil {
				rec.UserID = &uid
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *firestoreActivityRepo) CountSince(ctx context.Context, since string) (int, error) {
	cutoff, err := time.Parse(time.RFC3339, since)
	if err != nil {
		return 0, err
	}
	rows, err := r.client.runQuery(ctx, colActivities,
		[]fsFilter{{"created_at", "GREATER_THAN_OR_EQUAL", fsTime(cutoff)}}, "", 0)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

type firestoreNotificationRepo struct {
	client *firestoreClient
}

func (r *firestoreNotificationRepo) Create(ctx context.Context, n *models.AdminNotification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	fields := fsFields{
		"type":       fsString(string(n.Type)),
		"title":      fsString(n.Title),
		"message":    fsString(n.Message),
		"data":       fsString(string(data)),
		"read":       fsBool(false),
		"created_at": fsTime(time.Now()),
	}
	return r.client.createDoc(ctx, colNotifications, n.ID.String(), fields)
}

func (r *firestoreNotificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*models.AdminNotification, error) {
	var filters []fsFilter
	if onlyUnread {
		filters = append(filters, fsFilter{"read", "EQUAL", fsBool(false)})
	}
	rows, err := r.client.runQuery(ctx, colNotifications, filters, "created_at", limit)
	if err != nil {
		return nil, err
	}
	var notifications []*models.AdminNotification
	for _, row := range rows {
		n := &models.AdminNotification{
			Type:      models.NotificationType(str(row.Fields, "type")),
			Title:     str(row.Fields, "title"),
			Message:   str(row.Fields, "message"),
			Read:      boolean(row.Fields, "read"),
			CreatedAt: ts(row.Fields, "created_at"),
		}
		n.ID, _ = uuid.Parse(row.ID)
		if raw := str(row.Fields, "data"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &n.Data)
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

func (r *firestoreNotificationRepo) MarkAllRead(ctx context.Context, before time.Time) (int, error) {
	rows, err := r.client.runQuery(ctx, colNotifications,
		[]fsFilter{
			{"read", "EQUAL", fsBool(false)},
			{"created_at", "LESS_THAN_OR_EQUAL", fsTime(before)},
		}, "", 0)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, row := range rows {
		if err := r.client.patchDoc(ctx, colNotifications, row.ID, fsFields{"read": fsBool(true)}); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}
