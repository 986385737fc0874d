package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/Freeeeeet/tutor_market/internal/repository/base"
	"go.uber.org/zap"
)

// In-memory реализации хранилищ. Возвращают копии, как настоящая база.

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func newFakeProfiles(profiles ...*model.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]*model.Profile)}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) Upsert(_ context.Context, profile *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *profile
	f.profiles[profile.ID] = &cp
	return nil
}

func (f *fakeProfiles) ListByRole(_ context.Context, role model.Role) ([]*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Profile
	for _, p := range f.profiles {
		if p.Role == role {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DisplayName < result[j].DisplayName })
	return result, nil
}

type fakeMatchings struct {
	mu        sync.Mutex
	matchings map[string]*model.Matching
	// beforeUpdate вызывается перед compare-and-set, чтобы смоделировать гонку
	beforeUpdate func(m map[string]*model.Matching)
}

func newFakeMatchings() *fakeMatchings {
	return &fakeMatchings{matchings: make(map[string]*model.Matching)}
}

func copyMatching(m *model.Matching) *model.Matching {
	cp := *m
	if m.FollowupAt != nil {
		at := *m.FollowupAt
		cp.FollowupAt = &at
	}
	return &cp
}

func (f *fakeMatchings) Create(_ context.Context, m *model.Matching) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchings[m.ID] = copyMatching(m)
	return nil
}

func (f *fakeMatchings) GetByID(_ context.Context, id string) (*model.Matching, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matchings[id]
	if !ok {
		return nil, nil
	}
	return copyMatching(m), nil
}

func (f *fakeMatchings) GetActiveByPair(_ context.Context, learnerID, tutorID string) (*model.Matching, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.matchings {
		if m.LearnerID == learnerID && m.TutorID == tutorID && !m.Status.IsTerminal() {
			return copyMatching(m), nil
		}
	}
	return nil, nil
}

func (f *fakeMatchings) GetLatestByPair(_ context.Context, userA, userB string) (*model.Matching, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Matching
	for _, m := range f.matchings {
		pair := (m.LearnerID == userA && m.TutorID == userB) || (m.LearnerID == userB && m.TutorID == userA)
		if pair && (latest == nil || m.ContactDate.After(latest.ContactDate)) {
			latest = m
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyMatching(latest), nil
}

func (f *fakeMatchings) ListByUser(_ context.Context, userID string) ([]*model.Matching, error) {
	return f.filter(func(m *model.Matching) bool { return m.IsParticipant(userID) }), nil
}

func (f *fakeMatchings) ListDueFollowups(_ context.Context, now time.Time) ([]*model.Matching, error) {
	return f.filter(func(m *model.Matching) bool { return m.FollowupDue(now) }), nil
}

func (f *fakeMatchings) ListDueFollowupsByLearner(_ context.Context, learnerID string, now time.Time) ([]*model.Matching, error) {
	return f.filter(func(m *model.Matching) bool { return m.LearnerID == learnerID && m.FollowupDue(now) }), nil
}

func (f *fakeMatchings) filter(match func(*model.Matching) bool) []*model.Matching {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Matching
	for _, m := range f.matchings {
		if match(m) {
			result = append(result, copyMatching(m))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ContactDate.After(result[j].ContactDate) })
	return result
}

func (f *fakeMatchings) UpdateState(_ context.Context, m *model.Matching, prev model.MatchingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeUpdate != nil {
		f.beforeUpdate(f.matchings)
	}
	stored, ok := f.matchings[m.ID]
	if !ok || stored.Status != prev {
		return base.ErrNoRowsAffected
	}
	f.matchings[m.ID] = copyMatching(m)
	return nil
}

func (f *fakeMatchings) SnoozeFollowup(_ context.Context, id string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.matchings[id]
	if !ok || (stored.Status != model.MatchingStatusOpen && stored.Status != model.MatchingStatusContinued) {
		return base.ErrNoRowsAffected
	}
	stored.FollowupAt = &next
	return nil
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	updateErr error // ошибка, которую вернёт следующий UpdateStatus
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: make(map[string]*model.Booking)}
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.bookings[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID string) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool { return b.IsParticipant(userID) }), nil
}

func (f *fakeBookings) ListByTutorBetween(_ context.Context, tutorID string, from, to time.Time) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		return b.TutorID == tutorID && b.StartsAt.Before(to) && b.EndsAt.After(from)
	}), nil
}

func (f *fakeBookings) ListElapsedConfirmed(_ context.Context, now time.Time) ([]*model.Booking, error) {
	return f.filter(func(b *model.Booking) bool {
		return b.Status == model.BookingStatusConfirmed && !b.EndsAt.After(now)
	}), nil
}

func (f *fakeBookings) filter(match func(*model.Booking) bool) []*model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Booking
	for _, b := range f.bookings {
		if match(b) {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result
}

func (f *fakeBookings) UpdateStatus(_ context.Context, b *model.Booking, prev model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr; err != nil {
		f.updateErr = nil
		return err
	}
	stored, ok := f.bookings[b.ID]
	if !ok || stored.Status != prev {
		return base.ErrNoRowsAffected
	}
	stored.Status = b.Status
	stored.UpdatedAt = b.UpdatedAt
	return nil
}

type fakeReviews struct {
	mu      sync.Mutex
	reviews []*model.Review
}

func (f *fakeReviews) Create(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.reviews = append(f.reviews, &cp)
	return nil
}

func (f *fakeReviews) ExistsForBooking(_ context.Context, bookingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviews) ListByTutor(_ context.Context, tutorID string) ([]*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Review
	for i := len(f.reviews) - 1; i >= 0; i-- {
		if f.reviews[i].TutorID == tutorID {
			cp := *f.reviews[i]
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (f *fakeReviews) SummaryByTutor(_ context.Context, tutorID string) (*model.RatingSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	summary := &model.RatingSummary{TutorID: tutorID}
	total := 0
	for _, r := range f.reviews {
		if r.TutorID == tutorID {
			total += r.Rating
			summary.Count++
		}
	}
	if summary.Count > 0 {
		summary.Average = float64(total) / float64(summary.Count)
	}
	return summary, nil
}

type fakeConversations struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation

	applyErr error // ошибка, которую вернёт следующий ApplyMessage
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{conversations: make(map[string]*model.Conversation)}
}

func copyConversation(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		cp.UnreadCount[k] = v
	}
	return &cp
}

func (f *fakeConversations) GetOrCreate(_ context.Context, conv *model.Conversation) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.PairKey == conv.PairKey {
			return copyConversation(c), nil
		}
	}
	f.conversations[conv.ID] = copyConversation(conv)
	return copyConversation(conv), nil
}

func (f *fakeConversations) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, nil
	}
	return copyConversation(c), nil
}

func (f *fakeConversations) ListByParticipant(_ context.Context, userID string) ([]*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Conversation
	for _, c := range f.conversations {
		if c.HasParticipant(userID) {
			result = append(result, copyConversation(c))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LastMessageAt.After(result[j].LastMessageAt) })
	return result, nil
}

func (f *fakeConversations) ApplyMessage(_ context.Context, id, text string, at time.Time, recipients []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErr; err != nil {
		f.applyErr = nil
		return err
	}
	c, ok := f.conversations[id]
	if !ok {
		return base.ErrNoRowsAffected
	}
	c.LastMessage = text
	c.LastMessageAt = at
	for _, r := range recipients {
		c.UnreadCount[r]++
	}
	return nil
}

func (f *fakeConversations) ResetUnread(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return base.ErrNoRowsAffected
	}
	c.UnreadCount[userID] = 0
	return nil
}

type fakeMessages struct {
	mu       sync.Mutex
	messages []*model.Message
}

func (f *fakeMessages) Insert(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *msg
	cp.ReadBy = append([]string(nil), msg.ReadBy...)
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, m := range f.messages {
		if m.ID == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeMessages) ListByConversation(_ context.Context, conversationID string) ([]*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			cp := *m
			cp.ReadBy = append([]string(nil), m.ReadBy...)
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, conversationID, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var marked int64
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			continue
		}
		read := false
		for _, r := range m.ReadBy {
			if r == userID {
				read = true
				break
			}
		}
		if !read {
			m.ReadBy = append(m.ReadBy, userID)
			marked++
		}
	}
	return marked, nil
}

type notification struct {
	UserID string
	Text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{UserID: userID, Text: text})
	return nil
}

func (n *recordingNotifier) For(userID string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []notification
	for _, s := range n.sent {
		if s.UserID == userID {
			result = append(result, s)
		}
	}
	return result
}

// clock управляемое время для тестов
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const (
	learnerID  = "learner-1"
	tutorID    = "tutor-1"
	tutor2ID   = "tutor-2"
	strangerID = "stranger"
)

func testProfiles() *fakeProfiles {
	return newFakeProfiles(
		&model.Profile{ID: learnerID, Role: model.RoleStudent, DisplayName: "Lena", PhotoURL: "https://img/lena.png"},
		&model.Profile{ID: tutorID, Role: model.RoleTutor, DisplayName: "Ivan Petrovich", PhotoURL: "https://img/ivan.png"},
		&model.Profile{ID: tutor2ID, Role: model.RoleTutor, DisplayName: "Maria"},
		&model.Profile{ID: strangerID, Role: model.RoleStudent, DisplayName: "Stranger"},
	)
}

func newTestBroker(t *testing.T) *realtime.Broker {
	t.Helper()
	b := realtime.NewBroker(zap.NewNop())
	t.Cleanup(b.Close)
	return b
}
