package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userDocument is the stored shape. Field names follow the camelCase layout
// used by existing deployments of the users collection.
type userDocument struct {
	ID                     primitive.ObjectID `bson:"_id"`
	Name                   string             `bson:"name"`
	Email                  string             `bson:"email"`
	Password               string             `bson:"password"`
	Role                   string             `bson:"role"`
	Avatar                 string             `bson:"avatar"`
	IsEmailVerified        bool               `bson:"isEmailVerified"`
	EmailVerificationToken string             `bson:"emailVerificationToken,omitempty"`
	PasswordResetToken     string             `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires   *time.Time         `bson:"passwordResetExpires,omitempty"`
	IsActive               bool               `bson:"isActive"`
	LastLogin              *time.Time         `bson:"lastLogin,omitempty"`
	CreatedAt              time.Time          `bson:"createdAt"`
	UpdatedAt              time.Time          `bson:"updatedAt"`
}

type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique email index and the listing index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	user.Email = NormalizeEmail(user.Email)
	now := r.now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	doc, err := toDocument(user)
	if err != nil {
		return nil, err
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrEmailTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrInvalidID
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

func (r *MongoRepository) GetByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"passwordResetToken": tokenHash})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return fromDocument(&doc)
}

func (r *MongoRepository) Update(ctx context.Context, id string, c Changes) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrInvalidID
	}
	update, err := mongoUpdate(c, r.now().UTC())
	if err != nil {
		return nil, err
	}

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, common.ErrorNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, common.ErrEmailTaken
		default:
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	return fromDocument(&doc)
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrInvalidID
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) List(ctx context.Context, f Filter, p Page) ([]*models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(p.Offset)).
		SetLimit(int64(p.Limit))

	cursor, err := r.coll.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := make([]*models.User, 0, len(docs))
	for i := range docs {
		u, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

func (r *MongoRepository) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, mongoFilter(f))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// mongoUpdate sets only the fields named by c. A cleared reset is removed
// from the document.
func mongoUpdate(c Changes, now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}

	if c.Name != nil {
		set["name"] = *c.Name
	}
	if c.Email != nil {
		set["email"] = NormalizeEmail(*c.Email)
	}
	if c.PasswordHash != nil {
		set["password"] = *c.PasswordHash
	}
	if c.Role != nil {
		if !c.Role.Valid() {
			return nil, fmt.Errorf("store user: invalid role")
		}
		set["role"] = c.Role.String()
	}
	if c.Avatar != nil {
		set["avatar"] = *c.Avatar
	}
	if c.IsActive != nil {
		set["isActive"] = *c.IsActive
	}
	if c.LastLogin != nil {
		set["lastLogin"] = *c.LastLogin
	}
	if c.PasswordReset != nil {
		if c.PasswordReset.TokenHash == "" {
			unset["passwordResetToken"] = ""
			unset["passwordResetExpires"] = ""
		} else {
			set["passwordResetToken"] = c.PasswordReset.TokenHash
			set["passwordResetExpires"] = c.PasswordReset.Expires
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

func mongoFilter(f Filter) bson.M {
	m := bson.M{}

	if s := strings.TrimSpace(f.Search); s != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		m["$or"] = bson.A{bson.M{"name": rx}, bson.M{"email": rx}}
	}
	if f.Role != nil {
		m["role"] = f.Role.String()
	}
	if f.IsActive != nil {
		m["isActive"] = *f.IsActive
	}
	if f.IsEmailVerified != nil {
		m["isEmailVerified"] = *f.IsEmailVerified
	}
	if f.CreatedSince != nil {
		m["createdAt"] = bson.M{"$gte": *f.CreatedSince}
	}
	if f.LastLoginSince != nil {
		m["lastLogin"] = bson.M{"$gte": *f.LastLoginSince}
	}
	return m
}

func toDocument(u *models.User) (*userDocument, error) {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, common.ErrInvalidID
	}
	if !u.Role.Valid() {
		return nil, fmt.Errorf("store user %s: invalid role", u.ID)
	}

	return &userDocument{
		ID:                     oid,
		Name:                   u.Name,
		Email:                  u.Email,
		Password:               u.PasswordHash,
		Role:                   u.Role.String(),
		Avatar:                 u.Avatar,
		IsEmailVerified:        u.IsEmailVerified,
		EmailVerificationToken: u.EmailVerificationToken,
		PasswordResetToken:     u.PasswordResetToken,
		PasswordResetExpires:   u.PasswordResetExpires,
		IsActive:               u.IsActive,
		LastLogin:              u.LastLogin,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}, nil
}

func fromDocument(d *userDocument) (*models.User, error) {
	role, err := models.ParseRole(d.Role)
	if err != nil {
		return nil, fmt.Errorf("db error: user %s: %w", d.ID.Hex(), err)
	}

	return &models.User{
		ID:                     d.ID.Hex(),
		Name:                   d.Name,
		Email:                  d.Email,
		PasswordHash:           d.Password,
		Role:                   role,
		Avatar:                 d.Avatar,
		IsEmailVerified:        d.IsEmailVerified,
		EmailVerificationToken: d.EmailVerificationToken,
		PasswordResetToken:     d.PasswordResetToken,
		PasswordResetExpires:   d.PasswordResetExpires,
		IsActive:               d.IsActive,
		LastLogin:              d.LastLogin,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}, nil
}
