package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Adilbek99/volunteer-system/models"
	"github.com/Adilbek99/volunteer-system/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- фейковые репозитории ---

type fakeEventRepo struct {
	events map[int]*models.Event
	due    []models.Event
}

func newFakeEventRepo(events ...*models.Event) *fakeEventRepo {
	repo := &fakeEventRepo{events: make(map[int]*models.Event)}
	for _, e := range events {
		repo.events[e.ID] = e
	}
	return repo
}

func (r *fakeEventRepo) Create(ctx context.Context, event *models.Event) error {
	event.ID = len(r.events) + 1
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id int) (*models.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, repositories.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *models.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return repositories.ErrEventNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.EventStatus) error {
	event, ok := r.events[id]
	if !ok {
		return repositories.ErrEventNotFound
	}
	event.Status = status
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.events[id]; !ok {
		return repositories.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) List(ctx context.Context, filter repositories.EventFilter) ([]models.Event, error) {
	out := make([]models.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeEventRepo) ListDue(ctx context.Context, now time.Time) ([]models.Event, error) {
	return r.due, nil
}

func (r *fakeEventRepo) Count(ctx context.Context, status *models.EventStatus) (int, error) {
	return len(r.events), nil
}

type fakeRegistrationRepo struct {
	registrations map[int]*models.EventRegistration
	activeByEvent map[int]int
	nextID        int
	createErr     error
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{
		registrations: make(map[int]*models.EventRegistration),
		activeByEvent: make(map[int]int),
		nextID:        1,
	}
}

func (r *fakeRegistrationRepo) CreateWithinCapacity(ctx context.Context, registration *models.EventRegistration) error {
	if r.createErr != nil {
		return r.createErr
	}
	registration.ID = r.nextID
	r.nextID++
	r.registrations[registration.ID] = registration
	r.activeByEvent[registration.EventID]++
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id int) (*models.EventRegistration, error) {
	registration, ok := r.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	copied := *registration
	return &copied, nil
}

func (r *fakeRegistrationRepo) FindActiveByEventAndUser(ctx context.Context, eventID, userID int) (*models.EventRegistration, error) {
	for _, registration := range r.registrations {
		if registration.EventID == eventID && registration.UserID == userID && registration.Status.IsActive() {
			copied := *registration
			return &copied, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByEvent(ctx context.Context, eventID int) ([]models.EventRegistration, error) {
	var out []models.EventRegistration
	for _, registration := range r.registrations {
		if registration.EventID == eventID {
			out = append(out, *registration)
		}
	}
	return out, nil
}

func (r *fakeRegistrationRepo) ListByUser(ctx context.Context, userID int) ([]models.EventRegistration, error) {
	var out []models.EventRegistration
	for _, registration := range r.registrations {
		if registration.UserID == userID {
			out = append(out, *registration)
		}
	}
	return out, nil
}

func (r *fakeRegistrationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.RegistrationStatus) error {
	registration, ok := r.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	registration.Status = status
	return nil
}

func (r *fakeRegistrationRepo) CountActiveByEvent(ctx context.Context, eventID int) (int, error) {
	return r.activeByEvent[eventID], nil
}

func (r *fakeRegistrationRepo) Count(ctx context.Context, status *models.RegistrationStatus) (int, error) {
	return len(r.registrations), nil
}

type fakeTermsRepo struct {
	questions   map[int][]models.TermsQuestion
	acceptances map[[2]int]*models.TermsAcceptance
	saveErr     error
}

func newFakeTermsRepo() *fakeTermsRepo {
	return &fakeTermsRepo{
		questions:   make(map[int][]models.TermsQuestion),
		acceptances: make(map[[2]int]*models.TermsAcceptance),
	}
}

func (r *fakeTermsRepo) CreateQuestion(ctx context.Context, question *models.TermsQuestion) error {
	question.ID = len(r.questions[question.EventID]) + 1
	r.questions[question.EventID] = append(r.questions[question.EventID], *question)
	return nil
}

func (r *fakeTermsRepo) DeleteQuestion(ctx context.Context, id int) error {
	return nil
}

func (r *fakeTermsRepo) ListQuestionsByEvent(ctx context.Context, eventID int) ([]models.TermsQuestion, error) {
	return r.questions[eventID], nil
}

func (r *fakeTermsRepo) SaveAcceptance(ctx context.Context, acceptance *models.TermsAcceptance, responses []models.TermsResponse) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	key := [2]int{acceptance.EventID, acceptance.UserID}
	if _, ok := r.acceptances[key]; ok {
		return repositories.ErrTermsAcceptanceConflict
	}
	r.acceptances[key] = acceptance
	return nil
}

func (r *fakeTermsRepo) GetAcceptance(ctx context.Context, eventID, userID int) (*models.TermsAcceptance, error) {
	acceptance, ok := r.acceptances[[2]int{eventID, userID}]
	if !ok {
		return nil, repositories.ErrTermsAcceptanceNotFound
	}
	return acceptance, nil
}

type fakeNotifier struct {
	sent []NotifyInput
}

func (n *fakeNotifier) Notify(ctx context.Context, input NotifyInput) error {
	n.sent = append(n.sent, input)
	return nil
}

func (n *fakeNotifier) List(ctx context.Context, userID int, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (n *fakeNotifier) UnreadCount(ctx context.Context, userID int) (int, error) {
	return 0, nil
}

func (n *fakeNotifier) MarkRead(ctx context.Context, notificationID, userID int) error {
	return nil
}

func (n *fakeNotifier) MarkAllRead(ctx context.Context, userID int) error {
	return nil
}

// --- тесты ---

func publishedEvent(id, maxVolunteers int) *models.Event {
	return &models.Event{
		ID:            id,
		Title:         "Субботник",
		MaxVolunteers: maxVolunteers,
		Status:        models.EventStatusPublished,
	}
}

func newTestRegistrationService(
	eventRepo *fakeEventRepo,
	registrationRepo *fakeRegistrationRepo,
	termsRepo *fakeTermsRepo,
	notifier *fakeNotifier,
) RegistrationService {
	return NewRegistrationService(registrationRepo, eventRepo, termsRepo, notifier, testLogger())
}

func TestRegisterOnPublishedEvent(t *testing.T) {
	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		newFakeRegistrationRepo(),
		newFakeTermsRepo(),
		&fakeNotifier{},
	)

	registration, err := svc.Register(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, registration.Status)
	assert.Equal(t, 42, registration.UserID)
}

func TestRegisterRejectsUnpublishedEvent(t *testing.T) {
	for _, status := range []models.EventStatus{
		models.EventStatusDraft,
		models.EventStatusInProgress,
		models.EventStatusCompleted,
		models.EventStatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			event := publishedEvent(1, 10)
			event.Status = status
			svc := newTestRegistrationService(
				newFakeEventRepo(event),
				newFakeRegistrationRepo(),
				newFakeTermsRepo(),
				&fakeNotifier{},
			)

			_, err := svc.Register(context.Background(), 1, 42)
			assert.ErrorIs(t, err, ErrEventNotPublished)
		})
	}
}

func TestRegisterFullEvent(t *testing.T) {
	registrationRepo := newFakeRegistrationRepo()
	registrationRepo.createErr = repositories.ErrEventCapacityReached

	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 1)),
		registrationRepo,
		newFakeTermsRepo(),
		&fakeNotifier{},
	)

	_, err := svc.Register(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestRegisterDuplicate(t *testing.T) {
	registrationRepo := newFakeRegistrationRepo()
	registrationRepo.createErr = repositories.ErrRegistrationConflict

	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		registrationRepo,
		newFakeTermsRepo(),
		&fakeNotifier{},
	)

	_, err := svc.Register(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrRegistrationConflict)
}

func TestRegisterRequiresTermsAcceptance(t *testing.T) {
	termsRepo := newFakeTermsRepo()
	termsRepo.questions[1] = []models.TermsQuestion{
		{ID: 1, EventID: 1, Type: models.TermsQuestionText, Required: true},
	}

	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		newFakeRegistrationRepo(),
		termsRepo,
		&fakeNotifier{},
	)

	_, err := svc.Register(context.Background(), 1, 42)
	assert.ErrorIs(t, err, ErrTermsNotAccepted)

	// После принятия условий регистрация проходит.
	termsRepo.acceptances[[2]int{1, 42}] = &models.TermsAcceptance{EventID: 1, UserID: 42}
	_, err = svc.Register(context.Background(), 1, 42)
	assert.NoError(t, err)
}

func TestConfirmRegistration(t *testing.T) {
	registrationRepo := newFakeRegistrationRepo()
	notifier := &fakeNotifier{}
	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		registrationRepo,
		newFakeTermsRepo(),
		notifier,
	)

	registration, err := svc.Register(context.Background(), 1, 42)
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusConfirmed, confirmed.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationRegistrationConfirmed, notifier.sent[0].Type)

	// Повторное подтверждение идемпотентно.
	again, err := svc.Confirm(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusConfirmed, again.Status)
	assert.Len(t, notifier.sent, 1)
}

func TestCancelRegistrationAccess(t *testing.T) {
	registrationRepo := newFakeRegistrationRepo()
	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		registrationRepo,
		newFakeTermsRepo(),
		&fakeNotifier{},
	)

	registration, err := svc.Register(context.Background(), 1, 42)
	require.NoError(t, err)

	// Чужой пользователь без прав администратора получает отказ.
	err = svc.Cancel(context.Background(), registration.ID, 99, false)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Владелец может отменить свою заявку.
	require.NoError(t, svc.Cancel(context.Background(), registration.ID, 42, false))
	cancelled, err := registrationRepo.GetByID(context.Background(), registration.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusCancelled, cancelled.Status)
}

func TestCancelByAdminNotifiesUser(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := newTestRegistrationService(
		newFakeEventRepo(publishedEvent(1, 10)),
		newFakeRegistrationRepo(),
		newFakeTermsRepo(),
		notifier,
	)

	registration, err := svc.Register(context.Background(), 1, 42)
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), registration.ID, 1, true))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, models.NotificationRegistrationCancelled, notifier.sent[0].Type)
	assert.Equal(t, 42, notifier.sent[0].UserID)
}

func TestAvailableSeatsNeverNegative(t *testing.T) {
	tests := []struct {
		name        string
		max         int
		activeCount int
		want        int
	}{
		{"свободные места", 10, 3, 7},
		{"ровно заполнено", 10, 10, 0},
		{"переполнено после снижения вместимости", 10, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registrationRepo := newFakeRegistrationRepo()
			registrationRepo.activeByEvent[1] = tt.activeCount
			svc := newTestRegistrationService(
				newFakeEventRepo(publishedEvent(1, tt.max)),
				registrationRepo,
				newFakeTermsRepo(),
				&fakeNotifier{},
			)

			seats, err := svc.AvailableSeats(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seats)
		})
	}
}
