package accounts

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Notifier delivers activation mail. Delivery is fire-and-forget: failures are
// handled by the implementation and never reach the caller.
type Notifier interface {
	Send(ctx context.Context, recipient, body string)
}

// OutcomeRecorder observes operation outcomes for metrics.
type OutcomeRecorder interface {
	ObserveAccountOutcome(operation, outcome string)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeyGenerator overrides how activation keys are drawn.
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newKey = gen
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOutcomeRecorder reports outcomes to recorder.
func WithOutcomeRecorder(recorder OutcomeRecorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// Service runs the registration and activation state machine. It keeps no
// mutable state of its own; everything lives in the repository.
type Service struct {
	repo      Repository
	hasher    Hasher
	notifier  Notifier
	validator *validator.Validate
	logger    *slog.Logger
	recorder  OutcomeRecorder
	now       func() time.Time
	newKey    KeyGenerator
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		hasher:    hasher,
		notifier:  notifier,
		validator: newValidator(),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newKey:    NewActivationKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActivationMessage renders the mail body carrying key.
func ActivationMessage(key string) string {
	return fmt.Sprintf("Hello, here is your activation code %s. Please go to /api/activate", key)
}

// Register creates a pending account or renews the key of an existing pending
// one. Registering an active account changes nothing. All three paths return
// Accepted so callers cannot tell them apart.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if err := validateRegistration(s.validator, in); err != nil {
		s.observe("register", err, "")
		return "", err
	}

	outcome, err := s.register(ctx, in)
	if errors.Is(err, ErrAccountExists) {
		// A concurrent call inserted the row first; continue as an existing account.
		outcome, err = s.register(ctx, in)
	}
	if err != nil {
		s.observe("register", err, "")
		return "", fmt.Errorf("register: %w", err)
	}
	s.observe("register", nil, outcome)
	return Accepted, nil
}

func (s *Service) register(ctx context.Context, in RegisterInput) (string, error) {
	account, err := s.repo.Get(ctx, in.Email)
	if errors.Is(err, ErrAccountNotFound) {
		return "created", s.create(ctx, in)
	}
	if err != nil {
		return "", err
	}
	if account.IsActive() {
		s.logger.Warn("security: attempt to register an active account again", slog.String("email", in.Email))
		return "ignored", nil
	}
	return "renewed", s.renew(ctx, account)
}

func (s *Service) create(ctx context.Context, in RegisterInput) error {
	key, err := s.newKey()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account := Account{
		ID:            uuid.New(),
		Email:         in.Email,
		PasswordHash:  hash,
		Status:        StatusPending,
		ActivationKey: key,
		RegisteredAt:  s.now(),
	}
	if err := s.repo.Insert(ctx, account); err != nil {
		return err
	}
	s.notifier.Send(ctx, in.Email, ActivationMessage(key))
	return nil
}

// renew keeps the stored password hash; the password of the repeated call is ignored.
func (s *Service) renew(ctx context.Context, account *Account) error {
	key, err := s.newKey()
	if err != nil {
		return err
	}
	if err := s.repo.UpdateActivationKey(ctx, account.Email, key, s.now()); err != nil {
		return err
	}
	s.notifier.Send(ctx, account.Email, ActivationMessage(key))
	return nil
}

// Activate confirms a pending account. Credentials are checked before any
// detail of the account state is disclosed.
func (s *Service) Activate(ctx context.Context, in ActivateInput) (ActivateResult, error) {
	result, err := s.activate(ctx, in)
	s.observe("activate", err, string(result))
	return result, err
}

func (s *Service) activate(ctx context.Context, in ActivateInput) (ActivateResult, error) {
	if in.Email == "" || in.Password == "" {
		return "", ErrUnauthorized
	}

	account, err := s.repo.Get(ctx, in.Email)
	if errors.Is(err, ErrAccountNotFound) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		return "", ErrUnauthorized
	}

	if account.IsActive() {
		return AlreadyActive, nil
	}
	if subtle.ConstantTimeCompare([]byte(in.ActivationCode), []byte(account.ActivationKey)) != 1 {
		return "", ErrInvalidActivationCode
	}
	if account.Expired(s.now()) {
		return "", ErrActivationExpired
	}

	if err := s.repo.Activate(ctx, account.Email); err != nil {
		return "", err
	}
	return Activated, nil
}

func (s *Service) observe(operation string, err error, outcome string) {
	if s.recorder == nil {
		return
	}
	if err != nil {
		outcome = outcomeForError(err)
	}
	s.recorder.ObserveAccountOutcome(operation, outcome)
}

func outcomeForError(err error) string {
	for _, known := range []struct {
		err  error
		name string
	}{
		{ErrInvalidRequest, "invalid_request"},
		{ErrInvalidEmail, "invalid_email"},
		{ErrInvalidPassword, "invalid_password"},
		{ErrUnauthorized, "unauthorized"},
		{ErrInvalidActivationCode, "invalid_activation_code"},
		{ErrActivationExpired, "activation_expired"},
	} {
		if errors.Is(err, known.err) {
			return known.name
		}
	}
	return "error"
}
