package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/siriwatk/noteflow-api/internal/model"
	"github.com/siriwatk/noteflow-api/internal/repository"
)

// duplicateKeyErr mimics the driver error a unique index violation produces.
func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User // keyed by hex id

	createErr error
	updateErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, duplicateKeyErr()
		}
	}

	user.ID = bson.NewObjectID()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	cpy := *user
	f.users[user.ID.Hex()] = &cpy
	return user, nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cpy := *u
	return &cpy, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			cpy := *u
			return &cpy, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeUserRepo) UpdateUser(
	_ context.Context,
	id string,
	params repository.UpdateUserParams,
) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if params.PasswordHash != nil {
		u.PasswordHash = *params.PasswordHash
	}
	if params.Verified != nil {
		u.Verified = *params.Verified
	}
	if params.ProfilePicture != nil {
		u.ProfilePicture = *params.ProfilePicture
	}
	u.UpdatedAt = time.Now()

	cpy := *u
	return &cpy, nil
}

func (f *fakeUserRepo) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens []*model.EphemeralToken

	createErr error
	deleteErr error

	// findByUserAndKindMisses makes the next N FindByUserAndKind calls miss,
	// simulating a concurrent writer that lands between check and insert.
	findByUserAndKindMisses  int
	findByUserTokenKindCalls int
}

var _ repository.EphemeralTokenRepository = (*fakeTokenRepo)(nil)

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{}
}

func (f *fakeTokenRepo) CreateToken(_ context.Context, token *model.EphemeralToken) (*model.EphemeralToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, t := range f.tokens {
		// Token values are globally unique only for revoked jtis; one pending
		// reset per user regardless of value.
		if token.Kind == model.TokenKindRevoked && t.Kind == model.TokenKindRevoked && t.Token == token.Token {
			return nil, duplicateKeyErr()
		}
		if token.Kind == model.TokenKindReset && t.Kind == model.TokenKindReset && t.UserID == token.UserID {
			return nil, duplicateKeyErr()
		}
	}

	token.ID = bson.NewObjectID()
	token.CreatedAt = time.Now()

	cpy := *token
	f.tokens = append(f.tokens, &cpy)
	return token, nil
}

func (f *fakeTokenRepo) FindByUserAndKind(
	_ context.Context,
	userID bson.ObjectID,
	kind model.TokenKind,
) (*model.EphemeralToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findByUserAndKindMisses > 0 {
		f.findByUserAndKindMisses--
		return nil, mongo.ErrNoDocuments
	}

	var latest *model.EphemeralToken
	for _, t := range f.tokens {
		if t.UserID == userID && t.Kind == kind {
			if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}
	cpy := *latest
	return &cpy, nil
}

func (f *fakeTokenRepo) FindByUserTokenKind(
	_ context.Context,
	userID bson.ObjectID,
	token string,
	kind model.TokenKind,
) (*model.EphemeralToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.findByUserTokenKindCalls++
	for _, t := range f.tokens {
		if t.UserID == userID && t.Token == token && t.Kind == kind {
			cpy := *t
			return &cpy, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeTokenRepo) UpsertRevocation(
	_ context.Context,
	userID bson.ObjectID,
	jti string,
	expiresAt time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tokens {
		if t.Kind == model.TokenKindRevoked && t.Token == jti {
			return nil
		}
	}
	f.tokens = append(f.tokens, &model.EphemeralToken{
		ID:        bson.NewObjectID(),
		UserID:    userID,
		Token:     jti,
		Kind:      model.TokenKindRevoked,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeTokenRepo) ExistsRevocation(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tokens {
		if t.Kind == model.TokenKindRevoked && t.Token == jti {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTokenRepo) DeleteByID(_ context.Context, id bson.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, t := range f.tokens {
		if t.ID == id {
			f.tokens = append(f.tokens[:i], f.tokens[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []*model.EphemeralToken
	var deleted int64
	now := time.Now()
	for _, t := range f.tokens {
		if t.ExpiresAt.Before(now) {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	f.tokens = kept
	return deleted, nil
}

func (f *fakeTokenRepo) countByKind(kind model.TokenKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tokens {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeTokenRepo) firstByKind(kind model.TokenKind) *model.EphemeralToken {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.tokens {
		if t.Kind == kind {
			cpy := *t
			return &cpy
		}
	}
	return nil
}

type sentMail struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

var _ Mailer = (*fakeMailer)(nil)

func (f *fakeMailer) Send(_ context.Context, to, subject, textBody, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, TextBody: textBody, HTMLBody: htmlBody})
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeNoteRepo struct {
	mu    sync.Mutex
	notes map[string]*model.Note
}

var _ repository.NoteRepository = (*fakeNoteRepo)(nil)

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: map[string]*model.Note{}}
}

func (f *fakeNoteRepo) CreateNote(_ context.Context, note *model.Note) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	note.ID = bson.NewObjectID()
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	cpy := *note
	f.notes[note.ID.Hex()] = &cpy
	return note, nil
}

func (f *fakeNoteRepo) GetNote(_ context.Context, id string, userID bson.ObjectID) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	cpy := *n
	return &cpy, nil
}

func (f *fakeNoteRepo) ListNotes(
	_ context.Context,
	userID bson.ObjectID,
	_ repository.FilterNotesParams,
) ([]*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Note
	for _, n := range f.notes {
		if n.UserID == userID {
			cpy := *n
			out = append(out, &cpy)
		}
	}
	return out, nil
}

func (f *fakeNoteRepo) UpdateNote(
	_ context.Context,
	id string,
	userID bson.ObjectID,
	params repository.UpdateNoteParams,
) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	if params.Title != nil {
		n.Title = *params.Title
	}
	if params.Body != nil {
		n.Body = *params.Body
	}
	if params.Tags != nil {
		n.Tags = *params.Tags
	}
	n.UpdatedAt = time.Now()

	cpy := *n
	return &cpy, nil
}

func (f *fakeNoteRepo) DeleteNote(_ context.Context, id string, userID bson.ObjectID) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.notes[id]
	if !ok || n.UserID != userID {
		return nil, mongo.ErrNoDocuments
	}
	delete(f.notes, id)
	return n, nil
}

// failingMailer always fails, for delivery-rollback tests.
var errSMTPDown = errors.New("smtp: connection refused")
