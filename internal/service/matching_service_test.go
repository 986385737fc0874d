package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testFollowupDelay = 7 * 24 * time.Hour

type matchingFixture struct {
	svc       *MatchingService
	matchings *fakeMatchings
	notifier  *recordingNotifier
	clock     *clock
}

func newMatchingFixture(t *testing.T) *matchingFixture {
	t.Helper()

	f := &matchingFixture{
		matchings: newFakeMatchings(),
		notifier:  &recordingNotifier{},
		clock:     &clock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.svc = NewMatchingService(f.matchings, testProfiles(), newTestBroker(t), f.notifier, testFollowupDelay, zap.NewNop())
	f.svc.now = f.clock.Now
	return f
}

func TestMatchingService_RequestContact(t *testing.T) {
	ctx := context.Background()

	t.Run("creates requested matching and notifies tutor", func(t *testing.T) {
		f := newMatchingFixture(t)

		m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
		require.NoError(t, err)
		assert.Equal(t, model.MatchingStatusRequested, m.Status)
		assert.Equal(t, "Lena", m.LearnerName)
		assert.Equal(t, "Ivan Petrovich", m.TutorName)
		assert.Nil(t, m.FollowupAt)
		assert.Len(t, f.notifier.For(tutorID), 1)
	})

	tests := []struct {
		name    string
		learner string
		tutor   string
		wantErr error
	}{
		{"self", learnerID, learnerID, ErrValidation},
		{"unknown learner", "ghost", tutorID, ErrProfileNotFound},
		{"tutor cannot request", tutor2ID, tutorID, ErrForbidden},
		{"unknown tutor", learnerID, "ghost", ErrNotFound},
		{"target is not a tutor", learnerID, strangerID, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMatchingFixture(t)
			_, err := f.svc.RequestContact(ctx, tt.learner, tt.tutor)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("one active matching per pair", func(t *testing.T) {
		f := newMatchingFixture(t)

		m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
		require.NoError(t, err)

		_, err = f.svc.RequestContact(ctx, learnerID, tutorID)
		assert.ErrorIs(t, err, ErrAlreadyExists)

		_, err = f.svc.Refuse(ctx, m.ID, learnerID)
		require.NoError(t, err)

		_, err = f.svc.RequestContact(ctx, learnerID, tutorID)
		assert.NoError(t, err)
	})
}

func TestMatchingService_Accept(t *testing.T) {
	ctx := context.Background()
	f := newMatchingFixture(t)

	m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, m.ID, learnerID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Accept(ctx, m.ID, strangerID)
	assert.ErrorIs(t, err, ErrNotFound)

	accepted, err := f.svc.Accept(ctx, m.ID, tutorID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchingStatusOpen, accepted.Status)
	require.NotNil(t, accepted.FollowupAt)
	assert.Equal(t, f.clock.Now().Add(testFollowupDelay), *accepted.FollowupAt)
	assert.Len(t, f.notifier.For(learnerID), 1)

	_, err = f.svc.Accept(ctx, m.ID, tutorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMatchingService_Close(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T, f *matchingFixture) *model.Matching {
		m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
		require.NoError(t, err)
		m, err = f.svc.Accept(ctx, m.ID, tutorID)
		require.NoError(t, err)
		return m
	}

	t.Run("continued re-arms followup", func(t *testing.T) {
		f := newMatchingFixture(t)
		m := open(t, f)

		f.clock.Advance(48 * time.Hour)
		closed, err := f.svc.Close(ctx, m.ID, learnerID, model.MatchingStatusContinued, " still looking ")
		require.NoError(t, err)
		assert.Equal(t, model.MatchingStatusContinued, closed.Status)
		assert.Equal(t, "still looking", closed.Feedback)
		require.NotNil(t, closed.FollowupAt)
		assert.Equal(t, f.clock.Now().Add(testFollowupDelay), *closed.FollowupAt)
	})

	t.Run("confirmed clears followup and is terminal", func(t *testing.T) {
		f := newMatchingFixture(t)
		m := open(t, f)

		closed, err := f.svc.Close(ctx, m.ID, tutorID, model.MatchingStatusConfirmed, "")
		require.NoError(t, err)
		assert.Nil(t, closed.FollowupAt)

		sent := f.notifier.For(learnerID)
		require.NotEmpty(t, sent)
		assert.Equal(t, "Contact between Lena and Ivan Petrovich: ✅ Confirmed", sent[len(sent)-1].Text)

		_, err = f.svc.Refuse(ctx, m.ID, learnerID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("requested cannot be closed", func(t *testing.T) {
		f := newMatchingFixture(t)
		m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
		require.NoError(t, err)

		_, err = f.svc.Close(ctx, m.ID, learnerID, model.MatchingStatusConfirmed, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("close status must be an outcome", func(t *testing.T) {
		f := newMatchingFixture(t)
		m := open(t, f)

		_, err := f.svc.Close(ctx, m.ID, learnerID, model.MatchingStatusOpen, "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestMatchingService_ConcurrentUpdateConflict(t *testing.T) {
	ctx := context.Background()
	f := newMatchingFixture(t)

	m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
	require.NoError(t, err)

	// Пока репетитор принимал заявку, ученик её отозвал
	f.matchings.beforeUpdate = func(stored map[string]*model.Matching) {
		stored[m.ID].Status = model.MatchingStatusRefused
	}

	_, err = f.svc.Accept(ctx, m.ID, tutorID)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.matchings.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MatchingStatusRefused, stored.Status)
}

func TestMatchingService_SweepFollowups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newMatchingFixture(t)

	prompts := make(chan *model.Matching, 4)
	sub := f.svc.SubscribeFollowups(ctx, learnerID, func(m *model.Matching) { prompts <- m })
	defer sub.Cancel()

	m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, m.ID, tutorID)
	require.NoError(t, err)

	n, err := f.svc.SweepFollowups(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, err := f.svc.PendingFollowups(ctx, learnerID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	f.clock.Advance(testFollowupDelay)

	pending, err = f.svc.PendingFollowups(ctx, learnerID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)

	before := len(f.notifier.For(learnerID))
	n, err = f.svc.SweepFollowups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.notifier.For(learnerID), before+1)

	select {
	case prompt := <-prompts:
		assert.Equal(t, m.ID, prompt.ID)
	case <-time.After(time.Second):
		t.Fatal("followup prompt was not delivered")
	}

	// Напоминание отложено на следующий период
	stored, err := f.matchings.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FollowupAt)
	assert.Equal(t, f.clock.Now().Add(testFollowupDelay), *stored.FollowupAt)

	n, err = f.svc.SweepFollowups(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchingService_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newMatchingFixture(t)

	snapshots := make(chan []*model.Matching, 8)
	sub := f.svc.Subscribe(ctx, tutorID, func(list []*model.Matching) { snapshots <- list }, nil)
	defer sub.Cancel()

	next := func() []*model.Matching {
		select {
		case s := <-snapshots:
			return s
		case <-time.After(time.Second):
			t.Fatal("snapshot was not delivered")
			return nil
		}
	}

	assert.Empty(t, next())

	m, err := f.svc.RequestContact(ctx, learnerID, tutorID)
	require.NoError(t, err)

	// Снимки приходят по порядку; ждём тот, где видна новая заявка
	deadline := time.After(time.Second)
	for {
		select {
		case list := <-snapshots:
			if len(list) == 1 && list[0].ID == m.ID {
				return
			}
		case <-deadline:
			t.Fatal("matching did not appear in the live list")
		}
	}
}

func TestMatchingService_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newMatchingFixture(t)

	_, err := f.svc.Get(ctx, "abc", learnerID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Accept(ctx, "abc", tutorID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Close(ctx, "abc", learnerID, model.MatchingStatusRefused, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
