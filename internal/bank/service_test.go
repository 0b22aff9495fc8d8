package bank

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalbank/globalbank-be/internal/models"
	"github.com/globalbank/globalbank-be/internal/storage"
)

// memStore keeps the document in memory with the same copy semantics a real
// store has: Load and Save go through a JSON round trip, so callers never
// share pointers with the stored state.
type memStore struct {
	doc     *models.Document
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{doc: models.NewDocument()}
}

func (m *memStore) Load(context.Context) (*models.Document, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return copyDoc(m.doc), nil
}

func (m *memStore) Save(_ context.Context, doc *models.Document) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = copyDoc(doc)
	m.saves++
	return nil
}

func (m *memStore) Close() {}

func copyDoc(doc *models.Document) *models.Document {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	var out models.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return &out
}

// recordingNotifier captures fire-and-forget notification calls.
type recordingNotifier struct {
	welcomes []models.User
	alerts   []models.Transaction
}

func (n *recordingNotifier) Welcome(user models.User) {
	n.welcomes = append(n.welcomes, user)
}

func (n *recordingNotifier) CreditAlert(_ models.User, tx models.Transaction) {
	n.alerts = append(n.alerts, tx)
}

func newTestService(t *testing.T) (*Service, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	notifier := &recordingNotifier{}
	return New(store, notifier, 5*time.Second), store, notifier
}

func registerAlice(t *testing.T, svc *Service) models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
		Phone:     "+15550001111",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, store, notifier := newTestService(t)

	user := registerAlice(t, svc)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
	assert.Empty(t, user.PasswordHash, "hash must not leak to callers")
	assert.Zero(t, user.Balance)
	assert.Len(t, user.AccountNumber, 12)
	assert.Equal(t, "GB", user.AccountNumber[:2])
	for _, c := range models.CryptoCurrencies {
		assert.NotEmpty(t, user.CryptoAddresses[c])
	}
	assert.Len(t, notifier.welcomes, 1)
	require.Len(t, store.doc.Users, 1)
	assert.NotEmpty(t, store.doc.Users[0].PasswordHash, "hash must be persisted")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Alice",
		LastName:  "Clone",
		Email:     "ALICE@example.com", // case-insensitive match
		Password:  "another pass",
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
	assert.Len(t, store.doc.Users, 1, "user collection gains exactly one entry total")
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{FirstName: "A", LastName: "B", Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterRequest{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterRequest{Email: "a@b.co", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogin(t *testing.T) {
	svc, store, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	user, err := svc.Login(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLogin)

	require.NotNil(t, store.doc.CurrentSession)
	assert.Equal(t, "alice@example.com", store.doc.CurrentSession.Email)
	assert.Equal(t, models.RoleCustomer, store.doc.CurrentSession.Role)

	_, err = svc.Login(ctx, "alice@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.Logout(ctx))
	assert.Nil(t, store.doc.CurrentSession)
}

func TestEnsureAdmin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@globalbank.local", "Bank Administrator", "super secret"))
	require.NoError(t, svc.EnsureAdmin(ctx, "admin@globalbank.local", "Bank Administrator", "super secret"))
	require.Len(t, store.doc.Users, 1)
	assert.Equal(t, models.RoleAdmin, store.doc.Users[0].Role)

	admin, err := svc.Login(ctx, "admin@globalbank.local", "super secret")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

// TestLedgerScenario walks the canonical credit/debit/overdraft sequence.
func TestLedgerScenario(t *testing.T) {
	svc, _, notifier := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	tx, balance, err := svc.Credit(ctx, CreditRequest{
		Email:    "alice@example.com",
		Amount:   100,
		Currency: "USD",
		Method:   "wire",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)
	assert.Equal(t, models.TxCredit, tx.Type)
	assert.Equal(t, 100.0, tx.Amount)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "Account credited via wire", tx.Description)
	assert.Len(t, notifier.alerts, 1)

	debitTx, err := svc.Debit(ctx, DebitRequest{
		Email:    "alice@example.com",
		Amount:   30,
		Currency: "USD",
		Reason:   "fee",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TxDebit, debitTx.Type)
	assert.Equal(t, "Admin Debit", debitTx.Method)
	assert.Equal(t, "fee", debitTx.Description)

	user, err := svc.User(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 70.0, user.Balance)

	_, err = svc.Debit(ctx, DebitRequest{Email: "alice@example.com", Amount: 1000, Currency: "USD"})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	user, err = svc.User(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 70.0, user.Balance, "failed debit must not change the balance")

	txs, err := svc.Transactions(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, txs, 2, "failed debit must not record a transaction")
	assert.Equal(t, models.TxDebit, txs[0].Type, "newest first")
}

func TestCreditCrypto(t *testing.T) {
	svc, store, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	// Mining on: a manual credit must still not grant a mining reward.
	enabled := true
	_, err := svc.UpdateSettings(ctx, SettingsPatch{MiningEnabled: &enabled})
	require.NoError(t, err)

	_, _, err = svc.Credit(ctx, CreditRequest{
		Email:    "alice@example.com",
		Amount:   0.25,
		Currency: "BTC",
		Method:   "blockchain",
	})
	require.NoError(t, err)

	user := store.doc.FindUser("alice@example.com")
	require.NotNil(t, user)
	assert.Equal(t, 0.25, user.CryptoBalance)
	assert.Equal(t, 0.25, user.MinedCoins)
	assert.Zero(t, user.Balance, "crypto credit must not touch the fiat balance")
}

func TestDebitCryptoOverdraft(t *testing.T) {
	svc, store, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	_, _, err := svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 0.1, Currency: "ETH", Method: "blockchain"})
	require.NoError(t, err)

	_, err = svc.Debit(ctx, DebitRequest{Email: "alice@example.com", Amount: 0.5, Currency: "ETH"})
	require.ErrorIs(t, err, ErrInsufficientFunds, "non-negative invariant holds for crypto too")

	debitTx, err := svc.Debit(ctx, DebitRequest{Email: "alice@example.com", Amount: 0.04, Currency: "ETH"})
	require.NoError(t, err)
	assert.Equal(t, "Account debited by admin", debitTx.Description)

	user := store.doc.FindUser("alice@example.com")
	assert.InDelta(t, 0.06, user.CryptoBalance, 1e-9)
}

func TestCreditValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 0, Method: "wire"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: -5, Method: "wire"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 10})
	assert.ErrorIs(t, err, ErrInvalidInput, "method is required")

	_, _, err = svc.Credit(ctx, CreditRequest{Email: "ghost@example.com", Amount: 10, Method: "wire"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Debit(ctx, DebitRequest{Email: "ghost@example.com", Amount: 10})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreditIdempotency(t *testing.T) {
	svc, store, notifier := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	req := CreditRequest{
		Email:          "alice@example.com",
		Amount:         50,
		Currency:       "USD",
		Method:         "wire",
		IdempotencyKey: "req-123",
	}
	first, balance, err := svc.Credit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance)

	// A retried submission returns the original transaction unchanged.
	second, balance, err := svc.Credit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 50.0, balance, "retry must not credit twice")
	assert.Len(t, store.doc.Transactions, 1)
	assert.Len(t, notifier.alerts, 1, "no duplicate alert on replay")
}

func TestDebitIdempotency(t *testing.T) {
	svc, store, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	_, _, err := svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 100, Currency: "USD", Method: "wire"})
	require.NoError(t, err)

	req := DebitRequest{Email: "alice@example.com", Amount: 40, Currency: "USD", Reason: "fee", IdempotencyKey: "debit-1"}
	first, err := svc.Debit(ctx, req)
	require.NoError(t, err)
	second, err := svc.Debit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	user := store.doc.FindUser("alice@example.com")
	assert.Equal(t, 60.0, user.Balance, "retry must not debit twice")
}

func TestCreateCustomer(t *testing.T) {
	svc, store, notifier := newTestService(t)
	ctx := context.Background()

	user, password, err := svc.CreateCustomer(ctx, CreateCustomerRequest{
		FirstName:      "Bob",
		LastName:       "Jones",
		Email:          "bob@example.com",
		InitialBalance: 250,
	})
	require.NoError(t, err)
	assert.Len(t, password, 10)
	assert.Equal(t, 250.0, user.Balance)
	assert.Len(t, notifier.welcomes, 1)

	// The generated password actually works.
	_, err = svc.Login(ctx, "bob@example.com", password)
	require.NoError(t, err)

	_, _, err = svc.CreateCustomer(ctx, CreateCustomerRequest{FirstName: "B", LastName: "J", Email: "bob@example.com"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	_, _, err = svc.CreateCustomer(ctx, CreateCustomerRequest{FirstName: "B", LastName: "J", Email: "c@d.io", InitialBalance: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Len(t, store.doc.Users, 1)
}

func TestUpdateSettings(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	daily := 20.0
	reward := 1.5
	settings, err := svc.UpdateSettings(ctx, SettingsPatch{
		DailyCredit:   &daily,
		MiningReward:  &reward,
		ExchangeRates: map[string]float64{"EUR": 0.95},
	})
	require.NoError(t, err)
	assert.Equal(t, 20.0, settings.DailyCredit)
	assert.Equal(t, 1.5, settings.MiningReward)
	assert.Equal(t, 0.95, settings.ExchangeRates["EUR"])
	assert.Equal(t, 1.0, settings.ExchangeRates["USD"], "untouched rates survive")

	bad := -1.0
	_, err = svc.UpdateSettings(ctx, SettingsPatch{DailyCredit: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateSettings(ctx, SettingsPatch{ExchangeRates: map[string]float64{"EUR": 0}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	settings, err = svc.SetMining(ctx, true)
	require.NoError(t, err)
	assert.True(t, settings.MiningEnabled)
}

func TestUpdateAddressAndOverview(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "admin@globalbank.local", "Bank Administrator", "super secret"))

	user, err := svc.UpdateAddress(ctx, "alice@example.com", "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", user.Address)

	_, _, err = svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 100, Currency: "USD", Method: "wire"})
	require.NoError(t, err)
	_, _, err = svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 2, Currency: "BTC", Method: "blockchain"})
	require.NoError(t, err)

	stats, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Customers, "admin is not a customer")
	assert.Equal(t, 100.0, stats.TotalBalance)
	assert.Equal(t, 2.0, stats.TotalCrypto)
	assert.Equal(t, 2, stats.TransactionsToday)
}

func TestStorageErrorsPropagate(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.loadErr = errors.New("disk on fire")

	_, err := svc.Users(context.Background())
	assert.ErrorContains(t, err, "disk on fire")

	_, _, err = svc.Credit(context.Background(), CreditRequest{Email: "a@b.co", Amount: 1, Method: "wire"})
	assert.ErrorContains(t, err, "disk on fire")
}

func TestTransactionLookup(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	tx, _, err := svc.Credit(ctx, CreditRequest{Email: "alice@example.com", Amount: 10, Currency: "USD", Method: "wire"})
	require.NoError(t, err)

	found, owner, err := svc.Transaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, found.ID)
	assert.Equal(t, "alice@example.com", owner.Email)

	_, _, err = svc.Transaction(ctx, "missing-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
