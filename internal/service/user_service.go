package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"skywatch/internal/domain"
	"skywatch/internal/repository"
)

const (
	minUsernameLen       = 3
	maxUsernameLen       = 30
	oauthUsernameRetries = 5
)

// UserService coordina registro, login, OAuth y el CRUD de perfil.
// Es el único camino por el que una contraseña llega al repositorio, siempre hasheada.
type UserService struct {
	logger          *zap.Logger
	users           repository.UserRepository
	hasher          PasswordHasher
	identity        IdentityVerifier
	caseInsensitive bool
	now             func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(
	logger *zap.Logger,
	users repository.UserRepository,
	hasher PasswordHasher,
	identity IdentityVerifier,
	caseInsensitiveUsernames bool,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if identity == nil {
		identity = NewDisabledVerifier()
	}
	return &UserService{
		logger:          logger,
		users:           users,
		hasher:          hasher,
		identity:        identity,
		caseInsensitive: caseInsensitiveUsernames,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Username  string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=30"`
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type LoginInput struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserInput usa punteros: nil significa "no modificar".
type UpdateUserInput struct {
	Username       *string `json:"username" validate:"omitnil,alphanum,min=3,max=30"`
	Email          *string `json:"email" validate:"omitnil,email,max=254"`
	Password       *string `json:"password" validate:"omitnil,min=8,max=30"`
	FirstName      *string `json:"firstName" validate:"omitnil,max=100"`
	LastName       *string `json:"lastName" validate:"omitnil,max=100"`
	ProfilePicture *string `json:"profilePicture" validate:"omitnil,url,max=2048"`
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateStruct(input); err != nil {
		return domain.User{}, err
	}

	username := s.usernameKey(input.Username)
	email := normalizeEmail(input.Email)

	// Atajo para devolver detalle por campo; la garantía real es el índice único.
	conflicts, err := s.users.FindConflicts(ctx, username, email, "")
	if err != nil {
		return domain.User{}, fmt.Errorf("check uniqueness: %w", err)
	}
	if conflicts.Any() {
		return domain.User{}, conflictError(conflicts)
	}

	now := s.now()
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.setPassword(&user, input.Password); err != nil {
		return domain.User{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, duplicateError(err)
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

// Login resuelve el identificador contra username o email. Usuario inexistente,
// cuenta sin contraseña local y contraseña incorrecta devuelven el mismo error.
func (s *UserService) Login(ctx context.Context, input LoginInput) (domain.User, error) {
	input.Login = strings.TrimSpace(input.Login)
	if err := validateStruct(input); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetByLogin(ctx, s.usernameKey(input.Login), normalizeEmail(input.Login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.burnVerify(input.Password)
			s.logger.Warn("login failed", zap.String("reason", "unknown identifier"))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup login: %w", err)
	}
	if !user.HasPassword() {
		s.burnVerify(input.Password)
		s.logger.Warn("login failed", zap.String("reason", "no local password"), zap.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		s.logger.Error("password verify failed", zap.String("user_id", user.ID), zap.Error(err))
		return domain.User{}, ErrInvalidCredentials
	}
	if !ok {
		s.logger.Warn("login failed", zap.String("reason", "wrong password"), zap.String("user_id", user.ID))
		return domain.User{}, ErrInvalidCredentials
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, nil
}

// GoogleAuth es el único punto de entrada OAuth: vincula la cuenta existente con
// ese email o crea una nueva verificada y sin contraseña local. El bool indica creación.
func (s *UserService) GoogleAuth(ctx context.Context, credential string) (domain.User, bool, error) {
	ident, err := s.identity.Verify(ctx, credential)
	if err != nil {
		return domain.User{}, false, err
	}
	if ident.Subject == "" || ident.Email == "" {
		return domain.User{}, false, ErrOAuthInvalid
	}

	user, err := s.linkExisting(ctx, ident)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return domain.User{}, false, err
	}

	user, err = s.createFederated(ctx, ident)
	if err != nil {
		// Otro request creó la cuenta con ese email entre la búsqueda y el insert.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			user, err = s.linkExisting(ctx, ident)
			return user, false, err
		}
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (s *UserService) linkExisting(ctx context.Context, ident FederatedIdentity) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, ident.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup oauth email: %w", err)
	}

	now := s.now()
	if err := s.users.LinkOAuth(ctx, user.ID, ident.Provider, ident.Subject, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("link oauth: %w", err)
	}
	user.OAuthProvider = ident.Provider
	user.OAuthID = ident.Subject
	user.IsVerified = true
	user.UpdatedAt = now

	s.logger.Info("oauth account linked", zap.String("user_id", user.ID), zap.String("provider", ident.Provider))
	return user, nil
}

func (s *UserService) createFederated(ctx context.Context, ident FederatedIdentity) (domain.User, error) {
	base := usernameFromEmail(ident.Email)
	now := s.now()
	user := domain.User{
		ID:             uuid.NewString(),
		Email:          ident.Email,
		FirstName:      ident.GivenName,
		LastName:       ident.FamilyName,
		ProfilePicture: ident.Picture,
		IsVerified:     true,
		OAuthProvider:  ident.Provider,
		OAuthID:        ident.Subject,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	candidate := base
	for attempt := 0; attempt < oauthUsernameRetries; attempt++ {
		user.Username = s.usernameKey(candidate)
		err := s.users.Create(ctx, user)
		if err == nil {
			s.logger.Info("oauth account created", zap.String("user_id", user.ID), zap.String("provider", ident.Provider))
			return user, nil
		}
		if !errors.Is(err, repository.ErrDuplicateUsername) {
			return domain.User{}, fmt.Errorf("create oauth user: %w", err)
		}
		suffix, err := randomDigits(4)
		if err != nil {
			return domain.User{}, fmt.Errorf("username suffix: %w", err)
		}
		candidate = truncate(base, maxUsernameLen-len(suffix)) + suffix
	}
	return domain.User{}, fmt.Errorf("create oauth user: no free username for %q", base)
}

func (s *UserService) GetUser(ctx context.Context, id string) (domain.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return domain.User{}, ErrUserNotFound
	}
	id = parsed.String()
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser aplica los campos presentes. El id nunca cambia; una contraseña nueva se re-hashea.
func (s *UserService) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (domain.User, error) {
	// Un profilePicture vacío borra la foto.
	clearPicture := input.ProfilePicture != nil && strings.TrimSpace(*input.ProfilePicture) == ""
	if clearPicture {
		input.ProfilePicture = nil
	}
	if err := validateStruct(input); err != nil {
		return domain.User{}, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	var checkUsername, checkEmail string
	if input.Username != nil {
		user.Username = s.usernameKey(*input.Username)
		checkUsername = user.Username
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
		checkEmail = user.Email
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = strings.TrimSpace(*input.ProfilePicture)
	}
	if clearPicture {
		user.ProfilePicture = ""
	}

	if checkUsername != "" || checkEmail != "" {
		conflicts, err := s.users.FindConflicts(ctx, checkUsername, checkEmail, user.ID)
		if err != nil {
			return domain.User{}, fmt.Errorf("check uniqueness: %w", err)
		}
		if conflicts.Any() {
			return domain.User{}, conflictError(conflicts)
		}
	}

	if input.Password != nil {
		if err := s.setPassword(&user, *input.Password); err != nil {
			return domain.User{}, err
		}
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return domain.User{}, duplicateError(err)
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, ErrUserNotFound
		default:
			return domain.User{}, fmt.Errorf("update user: %w", err)
		}
	}

	s.logger.Info("user updated", zap.String("user_id", user.ID))
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}
	id = parsed.String()
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Warn("user deleted", zap.String("user_id", id))
	return nil
}

func (s *UserService) setPassword(user *domain.User, plaintext string) error {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return nil
}

// burnVerify iguala el costo de un login fallido sin cuenta al de una contraseña incorrecta.
func (s *UserService) burnVerify(plaintext string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("skywatch-dummy-password")
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(s.dummyHash, plaintext)
	}
}

func (s *UserService) usernameKey(username string) string {
	username = strings.TrimSpace(username)
	if s.caseInsensitive {
		return strings.ToLower(username)
	}
	return username
}

func conflictError(c repository.Conflicts) error {
	fields := make(map[string]string, 2)
	if c.Username {
		fields["username"] = "already exists"
	}
	if c.Email {
		fields["email"] = "already exists"
	}
	return newConflictError(fields)
}

func duplicateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return conflictError(repository.Conflicts{Username: true})
	case errors.Is(err, repository.ErrDuplicateEmail):
		return conflictError(repository.Conflicts{Email: true})
	default:
		return newConflictError(map[string]string{})
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// usernameFromEmail deriva un username alfanumérico válido de la parte local del email.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	name := truncate(b.String(), maxUsernameLen)
	for len(name) < minUsernameLen {
		name += "user"
	}
	return truncate(name, maxUsernameLen)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
