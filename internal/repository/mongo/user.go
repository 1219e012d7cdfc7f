package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

type userDoc struct {
	Sub          string    `bson:"sub"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name,omitempty"`
	Picture      string    `bson:"picture,omitempty"`
	IsAdmin      bool      `bson:"isAdmin,omitempty"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	LastLoginAt  time.Time `bson:"lastLoginAt,omitempty"`
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		Sub:          d.Sub,
		Email:        d.Email,
		Name:         d.Name,
		Picture:      d.Picture,
		IsAdmin:      d.IsAdmin,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		LastLoginAt:  d.LastLoginAt,
	}
}

// UpsertLogin records a provider login keyed by email.
func (db *DB) UpsertLogin(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}

	_, err := db.users.UpdateOne(ctx,
		bson.M{"email": user.Email},
		bson.M{
			"$set": bson.M{
				"sub":         user.Sub,
				"email":       user.Email,
				"name":        user.Name,
				"picture":     user.Picture,
				"lastLoginAt": user.LastLoginAt,
			},
			"$setOnInsert": bson.M{"createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: upserting user %s: %w", user.Email, err)
	}
	return nil
}

// SaveAdmin creates or updates the admin account for user.Email.
func (db *DB) SaveAdmin(ctx context.Context, user *model.User) error {
	set := bson.M{
		"sub":          user.Sub,
		"email":        user.Email,
		"isAdmin":      user.IsAdmin,
		"passwordHash": user.PasswordHash,
	}
	if user.Name != "" {
		set["name"] = user.Name
	}

	_, err := db.users.UpdateOne(ctx,
		bson.M{"email": user.Email},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"createdAt": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: saving admin %s: %w", user.Email, err)
	}
	return nil
}

// GetUserBySub returns apperror.ErrNotFound if no account carries sub.
func (db *DB) GetUserBySub(ctx context.Context, sub string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"sub": sub}, sub)
}

// GetUserByEmail returns apperror.ErrNotFound if no account uses email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUser(ctx, bson.M{"email": email}, email)
}

func (db *DB) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var doc userDoc
	err := db.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("mongo: getting user %s: %w", key, err)
	}
	return doc.toModel(), nil
}
