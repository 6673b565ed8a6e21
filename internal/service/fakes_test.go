package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/repository"
)

// memAccounts is an in-memory AccountStore and AccountLister.
type memAccounts struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.Account
	saves  int
}

func newMemAccounts() *memAccounts { return &memAccounts{byID: map[uint64]model.Account{}} }

func (m *memAccounts) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := m.FindByEmailWithSecret(ctx, email)
	if a != nil {
		a.PasswordHash = ""
	}
	return a, err
}

func (m *memAccounts) FindByEmailWithSecret(_ context.Context, email string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, a := range m.byID {
		if a.Email == email {
			cp := a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memAccounts) FindByID(_ context.Context, id uint64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) FindByResetToken(_ context.Context, token string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.ResetToken != nil && *a.ResetToken == token {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memAccounts) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	m.nextID++
	a.ID = m.nextID
	m.byID[a.ID] = *a
	return nil
}

func (m *memAccounts) Save(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[a.ID]; !ok {
		return repository.ErrNotFound
	}
	if a.PasswordHash == "" {
		return repository.ErrPlaintextSecret
	}
	m.saves++
	m.byID[a.ID] = *a
	return nil
}

func (m *memAccounts) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memAccounts) sorted(keep func(model.Account) bool) []model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Account
	for _, a := range m.byID {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memAccounts) ListAll(context.Context) ([]model.Account, error) {
	return m.sorted(func(model.Account) bool { return true }), nil
}

func (m *memAccounts) ListByRoles(_ context.Context, roles ...model.Role) ([]model.Account, error) {
	return m.sorted(func(a model.Account) bool { return hasRole(roles, a.Role) }), nil
}

func (m *memAccounts) ListExcludingRoles(_ context.Context, roles ...model.Role) ([]model.Account, error) {
	return m.sorted(func(a model.Account) bool { return !hasRole(roles, a.Role) }), nil
}

func hasRole(roles []model.Role, r model.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}

func (m *memAccounts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memVotes applies the same rules as VoteRepo.Cast over memAccounts.
type memVotes struct {
	mu       sync.Mutex
	accounts *memAccounts
	votes    map[[2]uint64]int
}

func newMemVotes(accounts *memAccounts) *memVotes {
	return &memVotes{accounts: accounts, votes: map[[2]uint64]int{}}
}

func (v *memVotes) Cast(ctx context.Context, voterID, ratedID uint64, rating int) (model.Account, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	acc, err := v.accounts.FindByID(ctx, ratedID)
	if err != nil {
		return model.Account{}, err
	}
	if _, ok := v.votes[[2]uint64{voterID, ratedID}]; ok {
		return model.Account{}, repository.ErrDuplicateVote
	}
	v.votes[[2]uint64{voterID, ratedID}] = rating
	var ratings []int
	for k, r := range v.votes {
		if k[1] == ratedID {
			ratings = append(ratings, r)
		}
	}
	acc.Rating, acc.TotalVotes = model.MeanRating(ratings)
	if err := v.accounts.Save(ctx, &acc); err != nil {
		return model.Account{}, err
	}
	return acc, nil
}

type sentReset struct {
	to    model.PublicAccount
	token string
}

type fakeMailer struct {
	resets   []sentReset
	contacts []ContactMessage
	err      error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to model.PublicAccount, token string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, sentReset{to: to, token: token})
	return nil
}

func (f *fakeMailer) SendContactMessage(_ context.Context, msg ContactMessage) error {
	if f.err != nil {
		return f.err
	}
	f.contacts = append(f.contacts, msg)
	return nil
}

// memFiles records saved files by URL.
type memFiles struct {
	files   map[string][]byte
	removed []string
	failOn  int // fail the n-th Save when > 0
	saves   int
}

func newMemFiles() *memFiles { return &memFiles{files: map[string][]byte{}} }

func (f *memFiles) Save(category, owner, name string, r io.Reader) (string, error) {
	f.saves++
	if f.failOn > 0 && f.saves == f.failOn {
		return "", errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	url := "http://api.test/uploads/" + category + "/"
	if owner != "" {
		url += owner + "/"
	}
	url += name
	f.files[url] = b
	return url, nil
}

func (f *memFiles) Remove(url string) error {
	f.removed = append(f.removed, url)
	delete(f.files, url)
	return nil
}

type memPhotos struct {
	nextID uint64
	photos []model.WorkPhoto
	err    error
}

func (m *memPhotos) CreateBatch(_ context.Context, photos []model.WorkPhoto) ([]model.WorkPhoto, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.WorkPhoto, len(photos))
	for i, p := range photos {
		m.nextID++
		p.ID = m.nextID
		out[i] = p
		m.photos = append(m.photos, p)
	}
	return out, nil
}

func (m *memPhotos) ListByProfessional(_ context.Context, id uint64) ([]model.WorkPhoto, error) {
	out := []model.WorkPhoto{}
	for _, p := range m.photos {
		if p.ProfessionalID == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPhotos) FindByFilename(_ context.Context, id uint64, filename string) (model.WorkPhoto, error) {
	for _, p := range m.photos {
		if p.ProfessionalID == id && p.Filename == filename {
			return p, nil
		}
	}
	return model.WorkPhoto{}, repository.ErrNotFound
}

func (m *memPhotos) Delete(_ context.Context, id uint64) error {
	for i, p := range m.photos {
		if p.ID == id {
			m.photos = append(m.photos[:i], m.photos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// memWorks is an in-memory WorkStore.
type memWorks struct {
	nextID  uint64
	works   map[uint64]model.Work
	budgets map[uint32]uint64
}

func newMemWorks() *memWorks {
	return &memWorks{works: map[uint64]model.Work{}, budgets: map[uint32]uint64{}}
}

func (m *memWorks) CreateWithReceipt(_ context.Context, w *model.Work, budget uint32) error {
	if _, ok := m.budgets[budget]; ok {
		return repository.ErrBudgetNumberExists
	}
	m.nextID++
	w.ID = m.nextID
	w.Receipt = &model.Receipt{ID: w.ID, WorkID: w.ID, BudgetNumber: budget, Service: w.Service,
		Description: w.Description, Address: w.Address, Value: w.Value, Commission: w.Commission,
		PaymentMethod: w.PaymentMethod}
	m.budgets[budget] = w.ID
	m.works[w.ID] = *w
	return nil
}

func (m *memWorks) GetByID(_ context.Context, id uint64) (model.Work, error) {
	w, ok := m.works[id]
	if !ok {
		return model.Work{}, repository.ErrNotFound
	}
	return w, nil
}

func (m *memWorks) filter(keep func(model.Work) bool) []model.Work {
	out := []model.Work{}
	for _, w := range m.works {
		if keep(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memWorks) ListAll(context.Context) ([]model.Work, error) {
	return m.filter(func(model.Work) bool { return true }), nil
}

func (m *memWorks) ListByClient(_ context.Context, id uint64) ([]model.Work, error) {
	return m.filter(func(w model.Work) bool { return w.ClientID == id }), nil
}

func (m *memWorks) ListByProfessional(_ context.Context, id uint64) ([]model.Work, error) {
	return m.filter(func(w model.Work) bool { return w.ProjectLeaderID == id }), nil
}

func (m *memWorks) Update(_ context.Context, w *model.Work) error {
	m.works[w.ID] = *w
	return nil
}

func (m *memWorks) Delete(_ context.Context, id uint64) error {
	if _, ok := m.works[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.works, id)
	return nil
}

func (m *memWorks) ReceiptByWork(_ context.Context, id uint64) (model.Receipt, error) {
	w, ok := m.works[id]
	if !ok || w.Receipt == nil {
		return model.Receipt{}, repository.ErrNotFound
	}
	return *w.Receipt, nil
}

func (m *memWorks) ReceiptsByProfessional(_ context.Context, id uint64) ([]model.Receipt, error) {
	out := []model.Receipt{}
	for _, w := range m.filter(func(w model.Work) bool { return w.ProjectLeaderID == id }) {
		out = append(out, *w.Receipt)
	}
	return out, nil
}
