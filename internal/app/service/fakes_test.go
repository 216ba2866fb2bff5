package service

import (
	"context"
	"errors"
	"hackathon_portal/internal/app/cache"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"hackathon_portal/internal/platform/mail"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestCache() *cache.Cache {
	return cache.New(nil, nil, time.Minute)
}

// cacheProbe seeds the aggregate keys so a test can check that a write
// dropped them.
type cacheProbe struct {
	*cache.Cache
}

func newCacheProbe() *cacheProbe {
	return &cacheProbe{Cache: newTestCache()}
}

func (p *cacheProbe) prime(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	p.Set(ctx, statsCacheKey, map[string]int{"total": 1}, time.Minute)
	p.Set(ctx, analyticsKeyPrefix+"all", map[string]int{"total_teams": 1}, time.Minute)
	var v map[string]int
	require.True(t, p.Get(ctx, statsCacheKey, &v))
}

func (p *cacheProbe) assertInvalidated(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	var v map[string]int
	assert.False(t, p.Get(ctx, statsCacheKey, &v), "stats still cached")
	assert.False(t, p.Get(ctx, analyticsKeyPrefix+"all", &v), "analytics still cached")
}

// fakeTx runs fn without a transaction; the fakes below accept a nil tx.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(_ context.Context, fn func(tx *sqlx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Dispatch(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeUserRepo struct {
	byID map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]*model.User{}}
}

func (r *fakeUserRepo) add(email string, verified bool) *model.User {
	u := &model.User{ID: uuid.NewString(), Email: email, EmailVerified: verified, CreatedAt: testNow}
	r.byID[u.ID] = u
	return u
}

func (r *fakeUserRepo) UpsertVerified(ctx context.Context, email string) (*model.User, error) {
	if u, err := r.FindByEmail(ctx, email); err == nil {
		u.EmailVerified = true
		return u, nil
	}
	return r.add(email, true), nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

type fakeOtpRepo struct {
	otps map[string]*model.Otp
}

func newFakeOtpRepo() *fakeOtpRepo {
	return &fakeOtpRepo{otps: map[string]*model.Otp{}}
}

func otpKey(email string, purpose model.OtpPurpose) string { return email + "|" + string(purpose) }

func (r *fakeOtpRepo) byID(id string) *model.Otp {
	for _, o := range r.otps {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r *fakeOtpRepo) Upsert(_ context.Context, otp *model.Otp) error {
	stored := *otp
	stored.Attempts = 0
	stored.Verified = false
	r.otps[otpKey(otp.Email, otp.Purpose)] = &stored
	return nil
}

func (r *fakeOtpRepo) Find(_ context.Context, email string, purpose model.OtpPurpose) (*model.Otp, error) {
	o, ok := r.otps[otpKey(email, purpose)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOtpRepo) MarkVerified(_ context.Context, id string) error {
	o := r.byID(id)
	if o == nil || o.Verified {
		return common.ErrNotFound
	}
	o.Verified = true
	return nil
}

func (r *fakeOtpRepo) IncrementAttempts(_ context.Context, id string) (int, error) {
	o := r.byID(id)
	if o == nil {
		return 0, common.ErrNotFound
	}
	o.Attempts++
	return o.Attempts, nil
}

func (r *fakeOtpRepo) Delete(_ context.Context, id string) error {
	for k, o := range r.otps {
		if o.ID == id {
			delete(r.otps, k)
		}
	}
	return nil
}

func (r *fakeOtpRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for k, o := range r.otps {
		if o.ExpiresAt.Before(before) {
			delete(r.otps, k)
			n++
		}
	}
	return n, nil
}

type fakeTeamRepo struct {
	teams      map[string]*model.Team
	exportRows []model.ExportRow
	statsCalls int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: map[string]*model.Team{}}
}

// addTeam stores a team with a single leader and an empty submission.
func (r *fakeTeamRepo) addTeam(name string, track model.Track, status model.TeamStatus, leaderEmail string) *model.Team {
	id := uuid.NewString()
	t := &model.Team{
		ID:     id,
		Name:   name,
		Track:  track,
		Status: status,
		Members: []model.TeamMember{
			{ID: uuid.NewString(), TeamID: id, Name: "Leader", Email: leaderEmail, Role: model.MemberLeader},
		},
		Submission: &model.Submission{ID: "sub-" + id, TeamID: id},
		CreatedAt:  testNow,
	}
	r.teams[id] = t
	return t
}

func (r *fakeTeamRepo) active() []*model.Team {
	var out []*model.Team
	for _, t := range r.teams {
		if t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *fakeTeamRepo) Create(ctx context.Context, _ *sqlx.Tx, team *model.Team) error {
	for _, m := range team.Members {
		if taken, _ := r.IsEmailRegistered(ctx, m.Email); taken {
			return &common.DuplicateKeyError{Constraint: "team_members_active_email_key"}
		}
	}
	team.CreatedAt = testNow
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) FindByID(_ context.Context, id string) (*model.Team, error) {
	t, ok := r.teams[id]
	if !ok || t.DeletedAt != nil {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) FindForUser(_ context.Context, userID, email string) (*model.Team, error) {
	for _, t := range r.active() {
		if t.LeaderUserID != nil && *t.LeaderUserID == userID {
			return t, nil
		}
		for _, m := range t.Members {
			if m.Email == email {
				return t, nil
			}
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeTeamRepo) IsEmailRegistered(_ context.Context, email string) (bool, error) {
	for _, t := range r.active() {
		for _, m := range t.Members {
			if m.Email == email {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeTeamRepo) List(_ context.Context, f model.TeamFilter) ([]model.TeamSummary, int, error) {
	var out []model.TeamSummary
	for _, t := range r.active() {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Track != nil && t.Track != *f.Track {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, model.TeamSummary{Team: *t, MemberCount: len(t.Members)})
	}
	total := len(out)
	if f.Limit > 0 {
		end := f.Offset + f.Limit
		if f.Offset > len(out) {
			f.Offset = len(out)
		}
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, total, nil
}

func (r *fakeTeamRepo) UpdateStatus(_ context.Context, id string, from, to model.TeamStatus, reviewerID string, notes *string, at time.Time) error {
	t, ok := r.teams[id]
	if !ok || t.DeletedAt != nil {
		return common.ErrNotFound
	}
	if t.Status != from {
		return common.ErrConflict
	}
	t.Status = to
	t.ReviewedBy = &reviewerID
	t.ReviewedAt = &at
	if notes != nil {
		t.ReviewNotes = notes
	}
	return nil
}

func (r *fakeTeamRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	t, ok := r.teams[id]
	if !ok || t.DeletedAt != nil {
		return common.ErrNotFound
	}
	t.DeletedAt = &at
	return nil
}

func (r *fakeTeamRepo) Stats(_ context.Context) (*model.TeamStats, error) {
	r.statsCalls++
	stats := &model.TeamStats{ByStatus: map[model.TeamStatus]int{}, ByTrack: map[model.Track]int{}}
	for _, t := range r.active() {
		stats.Total++
		stats.ByStatus[t.Status]++
		stats.ByTrack[t.Track]++
	}
	return stats, nil
}

func (r *fakeTeamRepo) ExportRows(_ context.Context, _ model.TeamFilter) ([]model.ExportRow, error) {
	return r.exportRows, nil
}

type fakeSubmissionRepo struct {
	files       []model.SubmissionFile
	judgeScores map[string]*float64
	updateErr   error
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{judgeScores: map[string]*float64{}}
}

func (r *fakeSubmissionRepo) FindByTeamID(_ context.Context, teamID string) (*model.Submission, error) {
	return nil, common.ErrNotFound
}

func (r *fakeSubmissionRepo) AddFile(_ context.Context, file *model.SubmissionFile) error {
	r.files = append(r.files, *file)
	return nil
}

func (r *fakeSubmissionRepo) UpdateJudgeScore(_ context.Context, _ *sqlx.Tx, submissionID string, score *float64) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.judgeScores[submissionID] = score
	return nil
}

type fakeCriterionRepo struct {
	criteria []model.ScoringCriterion
}

func (r *fakeCriterionRepo) List(_ context.Context, track *model.Track, activeOnly bool) ([]model.ScoringCriterion, error) {
	out := []model.ScoringCriterion{}
	for _, c := range r.criteria {
		if track != nil && c.Track != *track {
			continue
		}
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Track != out[j].Track {
			return out[i].Track < out[j].Track
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out, nil
}

func (r *fakeCriterionRepo) ReplaceActive(_ context.Context, _ *sqlx.Tx, track model.Track, criteria []model.ScoringCriterion) error {
	byID := map[string]int{}
	for i := range r.criteria {
		if r.criteria[i].Track == track {
			r.criteria[i].Active = false
		}
		byID[r.criteria[i].ID] = i
	}
	for _, c := range criteria {
		if i, ok := byID[c.ID]; ok {
			r.criteria[i] = c
			continue
		}
		r.criteria = append(r.criteria, c)
	}
	return nil
}

type fakeScoreRepo struct {
	scores      []model.CriterionScore
	scoredTeams []model.ScoredTeam
	judgeTeams  []model.JudgeTeam
	scoredCalls int
}

func (r *fakeScoreRepo) ReplaceJudgeScores(_ context.Context, _ *sqlx.Tx, submissionID, judgeID string, scores []model.CriterionScore) error {
	kept := r.scores[:0]
	for _, s := range r.scores {
		if s.SubmissionID != submissionID || s.JudgeID != judgeID {
			kept = append(kept, s)
		}
	}
	r.scores = append(kept, scores...)
	return nil
}

func (r *fakeScoreRepo) ListBySubmission(_ context.Context, _ *sqlx.Tx, submissionID string) ([]model.CriterionScore, error) {
	out := []model.CriterionScore{}
	for _, s := range r.scores {
		if s.SubmissionID == submissionID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeScoreRepo) ListScoredTeams(_ context.Context, track *model.Track) ([]model.ScoredTeam, error) {
	r.scoredCalls++
	var out []model.ScoredTeam
	for _, t := range r.scoredTeams {
		if track == nil || t.Track == *track {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeScoreRepo) ListJudgeTeams(_ context.Context, _ string, track *model.Track) ([]model.JudgeTeam, error) {
	var out []model.JudgeTeam
	for _, t := range r.judgeTeams {
		if track == nil || t.Track == *track {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeAdminRepo struct {
	admins map[string]*model.Admin
	logins int
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: map[string]*model.Admin{}}
}

func (r *fakeAdminRepo) Create(_ context.Context, admin *model.Admin) error {
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return &common.DuplicateKeyError{Constraint: "admins_email_key"}
		}
	}
	cp := *admin
	r.admins[admin.ID] = &cp
	return nil
}

func (r *fakeAdminRepo) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeAdminRepo) FindByID(_ context.Context, id string) (*model.Admin, error) {
	a, ok := r.admins[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAdminRepo) List(_ context.Context) ([]model.Admin, error) {
	var out []model.Admin
	for _, a := range r.admins {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *fakeAdminRepo) RecordLogin(_ context.Context, id, ip string, at time.Time) error {
	a, ok := r.admins[id]
	if !ok {
		return common.ErrNotFound
	}
	r.logins++
	a.LastLoginAt = &at
	a.LastLoginIP = &ip
	return nil
}

type fakeAdminSessionRepo struct {
	sessions map[string]*model.AdminSession
}

func newFakeAdminSessionRepo() *fakeAdminSessionRepo {
	return &fakeAdminSessionRepo{sessions: map[string]*model.AdminSession{}}
}

func (r *fakeAdminSessionRepo) Create(_ context.Context, s *model.AdminSession) error {
	cp := *s
	r.sessions[s.TokenHash] = &cp
	return nil
}

func (r *fakeAdminSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*model.AdminSession, error) {
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeAdminSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	if _, ok := r.sessions[tokenHash]; !ok {
		return 0, nil
	}
	delete(r.sessions, tokenHash)
	return 1, nil
}

func (r *fakeAdminSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for k, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, k)
			n++
		}
	}
	return n, nil
}

type fakeObjectStore struct {
	keys []string
	err  error
}

func (s *fakeObjectStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "https://cdn.example.test/" + key, nil
}

var errStoreDown = errors.New("store unavailable")
