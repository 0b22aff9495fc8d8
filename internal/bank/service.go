package bank

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/globalbank/globalbank-be/internal/models"
	"github.com/globalbank/globalbank-be/internal/notify"
	"github.com/globalbank/globalbank-be/internal/storage"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service owns every mutation of the banking document. All operations run
// a whole-document load-modify-save cycle under one mutex, so two
// concurrent callers can never produce a lost update.
type Service struct {
	mu       sync.Mutex
	store    storage.DocumentStore
	notifier notify.Notifier

	// accrual knobs, overridable in tests
	tickPeriod time.Duration
	rewardRoll func() float64
}

// New creates the service. tickPeriod must match the miner's interval: it
// determines how much of the daily credit each accrual tick grants.
func New(store storage.DocumentStore, notifier notify.Notifier, tickPeriod time.Duration) *Service {
	return &Service{
		store:      store,
		notifier:   notifier,
		tickPeriod: tickPeriod,
		rewardRoll: defaultRewardRoll,
	}
}

// RegisterRequest carries the self-service signup form fields.
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

// Register creates a customer account. Duplicate emails are rejected with
// storage.ErrAlreadyExists; the welcome notification fires after commit.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.User{}, err
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return models.User{}, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if len(strings.TrimSpace(req.Password)) < 8 {
		return models.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := newCustomer(req.FirstName, req.LastName, email, req.Phone, string(hash), 0)

	s.mu.Lock()
	created, err := s.appendUser(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return models.User{}, err
	}

	s.notifier.Welcome(created)
	return created.Redacted(), nil
}

// CreateCustomerRequest carries the admin-side account creation form.
type CreateCustomerRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	InitialBalance float64 `json:"initial_balance"`
}

// CreateCustomer opens an account on a customer's behalf with a generated
// temporary password, which is returned exactly once.
func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (models.User, string, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.User{}, "", err
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return models.User{}, "", fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if req.InitialBalance < 0 {
		return models.User{}, "", fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidInput)
	}

	password := tempPassword()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := newCustomer(req.FirstName, req.LastName, email, req.Phone, string(hash), req.InitialBalance)

	s.mu.Lock()
	created, err := s.appendUser(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return models.User{}, "", err
	}

	s.notifier.Welcome(created)
	return created.Redacted(), password, nil
}

// Login verifies credentials, stamps the last-login time, and records the
// session in the document.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	user := doc.FindUser(email)
	if user == nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	doc.CurrentSession = &models.Session{Email: user.Email, Role: user.Role, LoggedInAt: now}
	if err := s.store.Save(ctx, doc); err != nil {
		return models.User{}, err
	}
	return user.Redacted(), nil
}

// Logout clears the document's session record.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	doc.CurrentSession = nil
	return s.store.Save(ctx, doc)
}

// EnsureAdmin seeds the admin account on startup if it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, name, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if doc.FindUser(email) != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	first, last := splitName(name)
	admin := newCustomer(first, last, email, "", string(hash), 0)
	admin.Role = models.RoleAdmin
	doc.Users = append(doc.Users, admin)
	if err := s.store.Save(ctx, doc); err != nil {
		return err
	}
	log.WithField("email", email).Info("seeded admin account")
	return nil
}

// CreditRequest describes an admin credit. IdempotencyKey, when set,
// deduplicates retried submissions.
type CreditRequest struct {
	Email          string  `json:"email"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Method         string  `json:"method"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// Credit adds funds to a user's account and appends the ledger entry.
// Crypto currencies increase the crypto balance and mined-coin counter;
// everything else increases the fiat balance. Returns the transaction and
// the user's updated fiat balance.
func (s *Service) Credit(ctx context.Context, req CreditRequest) (models.Transaction, float64, error) {
	if req.Amount <= 0 {
		return models.Transaction{}, 0, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Method) == "" {
		return models.Transaction{}, 0, fmt.Errorf("%w: method is required", ErrInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	currency := normalizeCurrency(req.Currency)

	s.mu.Lock()
	tx, balance, user, replayed, err := s.creditLocked(ctx, email, currency, req)
	s.mu.Unlock()
	if err != nil {
		return models.Transaction{}, 0, err
	}

	// A replayed idempotency key changed nothing, so no second alert.
	if !replayed {
		s.notifier.CreditAlert(user, tx)
	}
	return tx, balance, nil
}

func (s *Service) creditLocked(ctx context.Context, email, currency string, req CreditRequest) (models.Transaction, float64, models.User, bool, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.Transaction{}, 0, models.User{}, false, err
	}

	user := doc.FindUser(email)
	if user == nil {
		return models.Transaction{}, 0, models.User{}, false, fmt.Errorf("%w: no user with email %s", storage.ErrNotFound, email)
	}

	if existing := doc.FindTransactionByKey(req.IdempotencyKey); existing != nil {
		return *existing, user.Balance, *user, true, nil
	}

	if models.IsCrypto(currency) {
		user.CryptoBalance += req.Amount
		user.MinedCoins += req.Amount
	} else {
		user.Balance += req.Amount
	}

	tx := models.Transaction{
		ID:             uuid.NewString(),
		UserEmail:      user.Email,
		Type:           models.TxCredit,
		Amount:         req.Amount,
		Currency:       currency,
		Method:         req.Method,
		Description:    fmt.Sprintf("Account credited via %s", req.Method),
		Status:         models.StatusCompleted,
		Date:           time.Now().UTC(),
		IdempotencyKey: req.IdempotencyKey,
	}
	doc.Transactions = append(doc.Transactions, tx)

	if err := s.store.Save(ctx, doc); err != nil {
		return models.Transaction{}, 0, models.User{}, false, err
	}
	return tx, user.Balance, *user, false, nil
}

// DebitRequest describes an admin debit.
type DebitRequest struct {
	Email          string  `json:"email"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Reason         string  `json:"reason"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// Debit removes funds from a user's account. The non-negative balance
// invariant holds for every currency: a debit that would overdraw either
// balance fails with ErrInsufficientFunds and leaves the document untouched.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (models.Transaction, error) {
	if req.Amount <= 0 {
		return models.Transaction{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	currency := normalizeCurrency(req.Currency)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.Transaction{}, err
	}

	user := doc.FindUser(email)
	if user == nil {
		return models.Transaction{}, fmt.Errorf("%w: no user with email %s", storage.ErrNotFound, email)
	}

	if existing := doc.FindTransactionByKey(req.IdempotencyKey); existing != nil {
		return *existing, nil
	}

	if models.IsCrypto(currency) {
		if user.CryptoBalance < req.Amount {
			return models.Transaction{}, ErrInsufficientFunds
		}
		user.CryptoBalance -= req.Amount
	} else {
		if user.Balance < req.Amount {
			return models.Transaction{}, ErrInsufficientFunds
		}
		user.Balance -= req.Amount
	}

	description := strings.TrimSpace(req.Reason)
	if description == "" {
		description = "Account debited by admin"
	}
	tx := models.Transaction{
		ID:             uuid.NewString(),
		UserEmail:      user.Email,
		Type:           models.TxDebit,
		Amount:         req.Amount,
		Currency:       currency,
		Method:         "Admin Debit",
		Description:    description,
		Status:         models.StatusCompleted,
		Date:           time.Now().UTC(),
		IdempotencyKey: req.IdempotencyKey,
	}
	doc.Transactions = append(doc.Transactions, tx)

	if err := s.store.Save(ctx, doc); err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}

// User fetches a single user by email.
func (s *Service) User(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	user := doc.FindUser(email)
	if user == nil {
		return models.User{}, fmt.Errorf("%w: no user with email %s", storage.ErrNotFound, email)
	}
	return user.Redacted(), nil
}

// Users lists every account, customers and admin alike.
func (s *Service) Users(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		out = append(out, u.Redacted())
	}
	return out, nil
}

// Transactions returns ledger entries newest first. An empty email returns
// the full ledger.
func (s *Service) Transactions(ctx context.Context, email string) ([]models.Transaction, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, 0, len(doc.Transactions))
	for _, tx := range doc.Transactions {
		if email == "" || tx.UserEmail == email {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// Transaction fetches one ledger entry and its owning user, for receipts.
func (s *Service) Transaction(ctx context.Context, id string) (models.Transaction, models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.Transaction{}, models.User{}, err
	}
	for _, tx := range doc.Transactions {
		if tx.ID == id {
			user := doc.FindUser(tx.UserEmail)
			if user == nil {
				return models.Transaction{}, models.User{}, fmt.Errorf("%w: transaction owner %s", storage.ErrNotFound, tx.UserEmail)
			}
			return tx, user.Redacted(), nil
		}
	}
	return models.Transaction{}, models.User{}, fmt.Errorf("%w: no transaction with id %s", storage.ErrNotFound, id)
}

// Settings returns the current settings record.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	return doc.Settings, nil
}

// SettingsPatch applies only the fields the admin actually submitted.
type SettingsPatch struct {
	MiningEnabled *bool              `json:"mining_enabled"`
	DailyCredit   *float64           `json:"daily_credit"`
	MiningReward  *float64           `json:"mining_reward"`
	ExchangeRates map[string]float64 `json:"exchange_rates"`
}

// UpdateSettings merges the patch into the stored settings.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (models.Settings, error) {
	if patch.DailyCredit != nil && *patch.DailyCredit < 0 {
		return models.Settings{}, fmt.Errorf("%w: daily credit cannot be negative", ErrInvalidInput)
	}
	if patch.MiningReward != nil && *patch.MiningReward < 0 {
		return models.Settings{}, fmt.Errorf("%w: mining reward cannot be negative", ErrInvalidInput)
	}
	for code, rate := range patch.ExchangeRates {
		if rate <= 0 {
			return models.Settings{}, fmt.Errorf("%w: exchange rate for %s must be positive", ErrInvalidInput, code)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.Settings{}, err
	}
	if patch.MiningEnabled != nil {
		doc.Settings.MiningEnabled = *patch.MiningEnabled
	}
	if patch.DailyCredit != nil {
		doc.Settings.DailyCredit = *patch.DailyCredit
	}
	if patch.MiningReward != nil {
		doc.Settings.MiningReward = *patch.MiningReward
	}
	for code, rate := range patch.ExchangeRates {
		if doc.Settings.ExchangeRates == nil {
			doc.Settings.ExchangeRates = map[string]float64{}
		}
		doc.Settings.ExchangeRates[code] = rate
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return models.Settings{}, err
	}
	return doc.Settings, nil
}

// SetMining flips the mining flag. The caller (handler or main) starts or
// stops the miner to match.
func (s *Service) SetMining(ctx context.Context, enabled bool) (models.Settings, error) {
	return s.UpdateSettings(ctx, SettingsPatch{MiningEnabled: &enabled})
}

// UpdateAddress sets a user's free-text home address.
func (s *Service) UpdateAddress(ctx context.Context, email, address string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	user := doc.FindUser(email)
	if user == nil {
		return models.User{}, fmt.Errorf("%w: no user with email %s", storage.ErrNotFound, email)
	}
	user.Address = strings.TrimSpace(address)
	if err := s.store.Save(ctx, doc); err != nil {
		return models.User{}, err
	}
	return user.Redacted(), nil
}

// Stats is the admin dashboard overview.
type Stats struct {
	Customers         int     `json:"customers"`
	TotalBalance      float64 `json:"total_balance"`
	TotalCrypto       float64 `json:"total_crypto"`
	TransactionsToday int     `json:"transactions_today"`
}

// Overview aggregates dashboard numbers across all customers.
func (s *Service) Overview(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for _, u := range doc.Users {
		if u.Role != models.RoleCustomer {
			continue
		}
		stats.Customers++
		stats.TotalBalance += u.Balance
		stats.TotalCrypto += u.CryptoBalance
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, tx := range doc.Transactions {
		if !tx.Date.UTC().Truncate(24 * time.Hour).Before(today) {
			stats.TransactionsToday++
		}
	}
	return stats, nil
}

// appendUser adds a user after a duplicate-email check; callers hold the lock.
func (s *Service) appendUser(ctx context.Context, user models.User) (models.User, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return models.User{}, err
	}
	if doc.FindUser(user.Email) != nil {
		return models.User{}, fmt.Errorf("%w: email %s", storage.ErrAlreadyExists, user.Email)
	}
	doc.Users = append(doc.Users, user)
	if err := s.store.Save(ctx, doc); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func newCustomer(first, last, email, phone, passwordHash string, balance float64) models.User {
	return models.User{
		FirstName:       strings.TrimSpace(first),
		LastName:        strings.TrimSpace(last),
		Email:           email,
		Phone:           strings.TrimSpace(phone),
		PasswordHash:    passwordHash,
		AccountNumber:   models.NewAccountNumber(),
		Balance:         balance,
		CryptoAddresses: models.NewCryptoAddresses(),
		Role:            models.RoleCustomer,
		CreatedAt:       time.Now().UTC(),
		Documents:       map[string]string{},
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return email, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return models.FiatCurrency
	}
	return currency
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "Bank", "Admin"
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func tempPassword() string {
	buf := make([]byte, 10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordAlphabet))))
		if err != nil {
			panic(err)
		}
		buf[i] = tempPasswordAlphabet[n.Int64()]
	}
	return string(buf)
}
