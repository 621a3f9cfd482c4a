package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolegate/authd/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository implements ports.UserRepository using MongoDB. Roles are
// stored by name and linked through the role repository on every read.
type UserRepository struct {
	col   *mongo.Collection
	roles *RoleRepository
}

func NewUserRepository(db *mongo.Database, roles *RoleRepository) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers), roles: roles}
}

type userDoc struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash"`
	Firstname             string             `bson:"firstname"`
	Lastname              string             `bson:"lastname"`
	Enabled               bool               `bson:"enabled"`
	AccountNonExpired     bool               `bson:"account_non_expired"`
	AccountNonLocked      bool               `bson:"account_non_locked"`
	CredentialsNonExpired bool               `bson:"credentials_non_expired"`
	Roles                 []string           `bson:"roles"`
	Permissions           []string           `bson:"permissions"`
	CreatedAt             int64              `bson:"created_at"`
	UpdatedAt             int64              `bson:"updated_at"`
}

func toUserDoc(u *domain.User) (userDoc, error) {
	doc := userDoc{
		Email:                 u.Email,
		PasswordHash:          u.PasswordHash,
		Firstname:             u.Firstname,
		Lastname:              u.Lastname,
		Enabled:               u.Enabled,
		AccountNonExpired:     u.AccountNonExpired,
		AccountNonLocked:      u.AccountNonLocked,
		CredentialsNonExpired: u.CredentialsNonExpired,
		Roles:                 u.RoleNames(),
		Permissions:           u.Permissions().Names(),
		CreatedAt:             u.CreatedAt.Unix(),
		UpdatedAt:             u.UpdatedAt.Unix(),
	}
	if u.ID != "" {
		id, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return userDoc{}, fmt.Errorf("user id %q: %w", u.ID, err)
		}
		doc.ID = id
	}
	return doc, nil
}

// fromUserDoc rebuilds the user, attaching roles found in graph. Role names
// missing from graph are dropped.
func fromUserDoc(doc userDoc, graph map[string]*domain.Role) *domain.User {
	u := domain.NewUser(doc.Email, doc.PasswordHash, doc.Firstname, doc.Lastname)
	u.ID = doc.ID.Hex()
	u.Enabled = doc.Enabled
	u.AccountNonExpired = doc.AccountNonExpired
	u.AccountNonLocked = doc.AccountNonLocked
	u.CredentialsNonExpired = doc.CredentialsNonExpired
	u.CreatedAt = unixToTime(doc.CreatedAt)
	u.UpdatedAt = unixToTime(doc.UpdatedAt)
	for _, n := range doc.Roles {
		u.AddRoles(graph[n])
	}
	for _, p := range doc.Permissions {
		u.AddPermissions(domain.NewPermission(p))
	}
	return u
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	graph, err := r.roles.loadGraph(ctx, doc.Roles)
	if err != nil {
		return nil, err
	}
	return fromUserDoc(doc, graph), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) DeleteByEmail(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"email": email})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Save inserts a new user or replaces an existing one by id. A second user
// with the same email is rejected by the unique index.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := toUserDoc(u)
	if err != nil {
		return nil, err
	}

	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrUserAlreadyRegistered
			}
			return nil, fmt.Errorf("insert user: %w", err)
		}
		u.ID = doc.ID.Hex()
		return u, nil
	}

	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
