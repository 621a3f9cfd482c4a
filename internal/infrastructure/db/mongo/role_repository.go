package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rolegate/authd/internal/core/domain"
)

const (
	collectionRoles       = "roles"
	collectionPermissions = "permissions"
)

type roleDoc struct {
	Name           string   `bson:"_id"`
	Permissions    []string `bson:"permissions"`
	InheritedRoles []string `bson:"inherited_roles"`
}

func toRoleDoc(r *domain.Role) roleDoc {
	return roleDoc{
		Name:           r.Name(),
		Permissions:    r.Permissions().Names(),
		InheritedRoles: r.InheritedRoleNames(),
	}
}

// linkRoles turns role documents into a linked role graph keyed by name.
// Inherited names without a document are dropped.
func linkRoles(docs []roleDoc) map[string]*domain.Role {
	roles := make(map[string]*domain.Role, len(docs))
	for _, d := range docs {
		r := domain.NewRole(d.Name)
		for _, p := range d.Permissions {
			r.AddPermission(domain.NewPermission(p))
		}
		roles[d.Name] = r
	}
	for _, d := range docs {
		inherited := make([]*domain.Role, 0, len(d.InheritedRoles))
		for _, n := range d.InheritedRoles {
			if ir, ok := roles[n]; ok {
				inherited = append(inherited, ir)
			}
		}
		roles[d.Name].ReplaceInheritedRoles(inherited...)
	}
	return roles
}

// RoleRepository implements ports.RoleRepository using MongoDB.
type RoleRepository struct {
	col *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles)}
}

// loadGraph fetches the named roles and every role they inherit, walking the
// graph one $in query per level.
func (r *RoleRepository) loadGraph(ctx context.Context, names []string) (map[string]*domain.Role, error) {
	var docs []roleDoc
	seen := make(map[string]struct{}, len(names))
	pending := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			pending = append(pending, n)
		}
	}

	for len(pending) > 0 {
		cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": pending}})
		if err != nil {
			return nil, fmt.Errorf("find roles: %w", err)
		}
		var level []roleDoc
		if err := cur.All(ctx, &level); err != nil {
			return nil, fmt.Errorf("decode roles: %w", err)
		}

		pending = pending[:0]
		for _, d := range level {
			docs = append(docs, d)
			for _, n := range d.InheritedRoles {
				if _, ok := seen[n]; !ok {
					seen[n] = struct{}{}
					pending = append(pending, n)
				}
			}
		}
	}
	return linkRoles(docs), nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	graph, err := r.loadGraph(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	role, ok := graph[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return role, nil
}

func (r *RoleRepository) FindByNames(ctx context.Context, names []string) ([]*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	graph, err := r.loadGraph(ctx, names)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Role, 0, len(names))
	for _, n := range names {
		if role, ok := graph[n]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

// Save upserts the role, replacing its stored permission and inherited-role
// sets wholesale.
func (r *RoleRepository) Save(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toRoleDoc(role)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.Name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("save role %s: %w", doc.Name, err)
	}
	return role, nil
}

func (r *RoleRepository) SaveAll(ctx context.Context, roles []*domain.Role) error {
	if len(roles) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(roles))
	for _, role := range roles {
		doc := toRoleDoc(role)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.Name}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if _, err := r.col.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	return nil
}

type permissionDoc struct {
	Name string `bson:"_id"`
}

// PermissionRepository implements ports.PermissionRepository using MongoDB.
type PermissionRepository struct {
	col *mongo.Collection
}

func NewPermissionRepository(db *mongo.Database) *PermissionRepository {
	return &PermissionRepository{col: db.Collection(collectionPermissions)}
}

func (r *PermissionRepository) FindByID(ctx context.Context, name string) (domain.Permission, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc permissionDoc
	err := r.col.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Permission{}, false, nil
	}
	if err != nil {
		return domain.Permission{}, false, fmt.Errorf("find permission: %w", err)
	}
	return domain.NewPermission(doc.Name), true, nil
}

func (r *PermissionRepository) FindByNames(ctx context.Context, names []string) ([]domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": names}})
	if err != nil {
		return nil, fmt.Errorf("find permissions: %w", err)
	}
	var docs []permissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	out := make([]domain.Permission, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.NewPermission(d.Name))
	}
	return out, nil
}

func (r *PermissionRepository) Save(ctx context.Context, p domain.Permission) (domain.Permission, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := permissionDoc{Name: p.Name}
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.Name}, doc, options.Replace().SetUpsert(true)); err != nil {
		return domain.Permission{}, fmt.Errorf("save permission %s: %w", p.Name, err)
	}
	return p, nil
}
