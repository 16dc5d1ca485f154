// Package testutil provides in-memory repository fakes for logic and
// handler tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/duynhne/rango/internal/core/domain"
)

// ErrInjected is returned by fakes whose Fail flag is set.
var ErrInjected = errors.New("injected failure")

// Categories is an in-memory domain.CategoryRepository.
type Categories struct {
	mu     sync.Mutex
	byID   map[int]*domain.Category
	nextID int
	Fail   bool
}

func NewCategories() *Categories {
	return &Categories{byID: map[int]*domain.Category{}, nextID: 1}
}

// Add inserts a category directly and returns a copy.
func (r *Categories) Add(name, slug string, likes int) domain.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &domain.Category{ID: r.nextID, Name: name, Slug: slug, Likes: likes}
	r.byID[c.ID] = c
	r.nextID++
	return *c
}

// Len returns how many categories are stored.
func (r *Categories) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Categories) find(match func(*domain.Category) bool) *domain.Category {
	for _, c := range r.byID {
		if match(c) {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (r *Categories) GetBySlug(_ context.Context, slug string) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	return r.find(func(c *domain.Category) bool { return c.Slug == slug }), nil
}

func (r *Categories) GetByID(_ context.Context, id int) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	return r.find(func(c *domain.Category) bool { return c.ID == id }), nil
}

func (r *Categories) ExistsByNameOrSlug(_ context.Context, name, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return false, ErrInjected
	}
	return r.find(func(c *domain.Category) bool {
		return strings.EqualFold(c.Name, name) || c.Slug == slug
	}) != nil, nil
}

func (r *Categories) Create(_ context.Context, name, slug string) (int, error) {
	r.mu.Lock()
	fail := r.Fail
	dup := r.find(func(c *domain.Category) bool {
		return strings.EqualFold(c.Name, name) || c.Slug == slug
	}) != nil
	r.mu.Unlock()
	if fail {
		return 0, ErrInjected
	}
	if dup {
		return 0, fmt.Errorf("category %q: %w", name, domain.ErrDuplicate)
	}
	return r.Add(name, slug, 0).ID, nil
}

func (r *Categories) GetOrCreate(_ context.Context, in domain.Category) (*domain.Category, error) {
	r.mu.Lock()
	found := r.find(func(c *domain.Category) bool { return c.Name == in.Name })
	fail := r.Fail
	r.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}
	if found != nil {
		return found, nil
	}
	c := r.Add(in.Name, in.Slug, in.Likes)
	return &c, nil
}

func (r *Categories) sorted() []domain.Category {
	out := make([]domain.Category, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b domain.Category) int {
		if a.Likes != b.Likes {
			return b.Likes - a.Likes
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

func (r *Categories) TopByLikes(_ context.Context, limit int) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	out := r.sorted()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Categories) SearchByPrefix(_ context.Context, prefix string, limit int) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	var out []domain.Category
	for _, c := range r.sorted() {
		if strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(prefix)) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Category) int { return strings.Compare(a.Name, b.Name) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Categories) IncrementLikes(_ context.Context, id int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, false, ErrInjected
	}
	c, ok := r.byID[id]
	if !ok {
		return 0, false, nil
	}
	c.Likes++
	return c.Likes, true, nil
}

// Pages is an in-memory domain.PageRepository.
type Pages struct {
	mu     sync.Mutex
	byID   map[int]*domain.Page
	nextID int
	Fail   bool
}

func NewPages() *Pages {
	return &Pages{byID: map[int]*domain.Page{}, nextID: 1}
}

// Add inserts a page directly and returns a copy.
func (r *Pages) Add(p domain.Page) domain.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := p
	r.byID[p.ID] = &cp
	return p
}

// Get returns a copy of the page, or nil.
func (r *Pages) Get(id int) *domain.Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Len returns how many pages are stored.
func (r *Pages) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Pages) sorted(match func(*domain.Page) bool) []domain.Page {
	var out []domain.Page
	for _, p := range r.byID {
		if match(p) {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Page) int {
		if a.Views != b.Views {
			return b.Views - a.Views
		}
		return a.ID - b.ID
	})
	return out
}

func (r *Pages) ListByCategory(_ context.Context, categoryID int) ([]domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	return r.sorted(func(p *domain.Page) bool { return p.CategoryID == categoryID }), nil
}

func (r *Pages) TopByViews(_ context.Context, limit int) ([]domain.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	out := r.sorted(func(*domain.Page) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Pages) Create(_ context.Context, p domain.Page) (int, error) {
	if r.Fail {
		return 0, ErrInjected
	}
	return r.Add(p).ID, nil
}

func (r *Pages) GetOrCreate(_ context.Context, p domain.Page) (*domain.Page, error) {
	r.mu.Lock()
	if r.Fail {
		r.mu.Unlock()
		return nil, ErrInjected
	}
	for _, existing := range r.byID {
		if existing.CategoryID == p.CategoryID && existing.Title == p.Title {
			cp := *existing
			r.mu.Unlock()
			return &cp, nil
		}
	}
	r.mu.Unlock()
	added := r.Add(p)
	return &added, nil
}

func (r *Pages) IncrementViews(_ context.Context, id int) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return "", false, ErrInjected
	}
	p, ok := r.byID[id]
	if !ok {
		return "", false, nil
	}
	p.Views++
	return p.URL, true, nil
}

// Users is an in-memory domain.UserRepository.
type Users struct {
	mu       sync.Mutex
	rows     map[int]*domain.UserRow
	nextID   int
	profiles *Profiles
	Fail     bool
}

func NewUsers() *Users {
	return &Users{rows: map[int]*domain.UserRow{}, nextID: 1}
}

// Len returns how many users are stored.
func (r *Users) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// SetActive flips a user's is_active flag.
func (r *Users) SetActive(id int, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.rows[id]; ok {
		u.IsActive = active
	}
}

func (r *Users) GetByUsername(_ context.Context, username string) (*domain.UserRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	for _, u := range r.rows {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Users) GetByID(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	u, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := u.User
	return &cp, nil
}

func (r *Users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, err := r.GetByUsername(ctx, username)
	return u != nil, err
}

func (r *Users) Create(_ context.Context, username, email, passwordHash string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, ErrInjected
	}
	return r.insert(username, email, passwordHash)
}

// CreateWithProfile inserts into the Profiles store built on r. Nothing is
// stored when either insert fails.
func (r *Users) CreateWithProfile(_ context.Context, username, email, passwordHash string, p domain.UserProfile) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, 0, ErrInjected
	}
	if r.profiles == nil {
		return 0, 0, errors.New("users store has no profile store")
	}
	r.profiles.mu.Lock()
	defer r.profiles.mu.Unlock()
	if r.profiles.Fail {
		return 0, 0, ErrInjected
	}

	userID, err := r.insert(username, email, passwordHash)
	if err != nil {
		return 0, 0, err
	}
	p.UserID = userID
	p.ID = r.profiles.nextID
	r.profiles.nextID++
	r.profiles.byUser[userID] = &p
	return userID, p.ID, nil
}

func (r *Users) insert(username, email, passwordHash string) (int, error) {
	for _, u := range r.rows {
		if u.Username == username {
			return 0, fmt.Errorf("user %q: %w", username, domain.ErrDuplicate)
		}
	}
	id := r.nextID
	r.nextID++
	r.rows[id] = &domain.UserRow{
		User:         domain.User{ID: id, Username: username, Email: email, IsActive: true, DateJoined: time.Now()},
		PasswordHash: passwordHash,
	}
	return id, nil
}

func (r *Users) UpdateLastLogin(context.Context, int) error {
	return nil
}

// Profiles is an in-memory domain.ProfileRepository.
type Profiles struct {
	mu     sync.Mutex
	byUser map[int]*domain.UserProfile
	users  *Users
	nextID int
	Fail   bool
}

// NewProfiles creates a profile store joined against users for List.
func NewProfiles(users *Users) *Profiles {
	p := &Profiles{byUser: map[int]*domain.UserProfile{}, users: users, nextID: 1}
	users.mu.Lock()
	users.profiles = p
	users.mu.Unlock()
	return p
}

// Len returns how many profiles are stored.
func (r *Profiles) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *Profiles) GetByUserID(_ context.Context, userID int) (*domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	p, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *Profiles) Create(_ context.Context, p domain.UserProfile) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, ErrInjected
	}
	if _, dup := r.byUser[p.UserID]; dup {
		return 0, fmt.Errorf("duplicate profile for user %d", p.UserID)
	}
	p.ID = r.nextID
	r.nextID++
	r.byUser[p.UserID] = &p
	return p.ID, nil
}

func (r *Profiles) Update(_ context.Context, p domain.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	existing, ok := r.byUser[p.UserID]
	if !ok {
		return nil
	}
	existing.Website = p.Website
	existing.Picture = p.Picture
	return nil
}

func (r *Profiles) List(ctx context.Context) ([]domain.ProfileSummary, error) {
	r.mu.Lock()
	profiles := make([]domain.UserProfile, 0, len(r.byUser))
	for _, p := range r.byUser {
		profiles = append(profiles, *p)
	}
	fail := r.Fail
	r.mu.Unlock()
	if fail {
		return nil, ErrInjected
	}

	out := make([]domain.ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		u, _ := r.users.GetByID(ctx, p.UserID)
		if u == nil {
			continue
		}
		out = append(out, domain.ProfileSummary{Username: u.Username, Profile: p})
	}
	slices.SortFunc(out, func(a, b domain.ProfileSummary) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

// Media is an in-memory domain.MediaStore.
type Media struct {
	mu    sync.Mutex
	Files map[string][]byte
	n     int
}

func NewMedia() *Media {
	return &Media{Files: map[string][]byte{}}
}

func (m *Media) Save(_ context.Context, filename, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	key := fmt.Sprintf("profile_images/%d-%s", m.n, filename)
	m.Files[key] = buf.Bytes()
	return key, nil
}

func (m *Media) URL(key string) string {
	if key == "" {
		return ""
	}
	return "/media/" + key
}

// PNG is a minimal valid PNG image for upload tests.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}
