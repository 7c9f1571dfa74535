package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"depositrent/internal/app/uow"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainuser "depositrent/internal/domain/user"
)

var ErrConcurrentUpdate = fmt.Errorf("mongo: %w", uow.ErrConcurrentUpdate)

// saveVersioned upserts doc under _id only while the stored version still
// equals version. A missing match on an existing id surfaces as a duplicate
// key error from the upsert.
func saveVersioned(ctx context.Context, col *mongo.Collection, id any, version int64, doc any) error {
	filter := bson.M{"_id": id, "version": version}
	res, err := col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

type DepositRepository struct {
	col *mongo.Collection
}

func NewDepositRepository(db *mongo.Database) *DepositRepository {
	return &DepositRepository{col: db.Collection(depositsCollection)}
}

func (r *DepositRepository) ByName(ctx context.Context, name domaindeposits.Name) (*domaindeposits.Deposit, error) {
	var doc depositDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(name)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaindeposits.ErrDepositNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *DepositRepository) Save(ctx context.Context, dep *domaindeposits.Deposit) error {
	if dep == nil {
		return domaindeposits.ErrInvalidName
	}
	doc := newDepositDocument(dep)
	doc.Version = dep.Version + 1
	if err := saveVersioned(ctx, r.col, doc.Name, dep.Version, doc); err != nil {
		return err
	}
	dep.Version = doc.Version
	return nil
}

func (r *DepositRepository) List(ctx context.Context) ([]*domaindeposits.Deposit, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []depositDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domaindeposits.Deposit, 0, len(docs))
	for _, doc := range docs {
		dep, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	if b == nil {
		return domainbooking.ErrBookingNotFound
	}
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, b.Version, doc); err != nil {
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, bookingFilter(filter), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

func bookingFilter(f domainbooking.Filter) bson.M {
	q := bson.M{}
	if f.ClientID != "" {
		q["client_id"] = f.ClientID
	}
	if f.DepositName != "" {
		q["deposit"] = string(f.DepositName)
	}
	if f.Stage != "" {
		q["stage"] = string(f.Stage)
	}
	return q
}

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(usersCollection)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"email": domainuser.NormalizeEmail(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

// Save upserts by id. The unique email index rejects a second account with
// the same address.
func (r *UserRepository) Save(ctx context.Context, u *domainuser.User) error {
	if u == nil || strings.TrimSpace(string(u.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	if u.Email == "" {
		return domainuser.ErrEmailRequired
	}
	doc := newUserDocument(u)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

type RegistryRepository struct {
	col *mongo.Collection
}

func NewRegistryRepository(db *mongo.Database) *RegistryRepository {
	return &RegistryRepository{col: db.Collection(registryCollection)}
}

func (r *RegistryRepository) Load(ctx context.Context) (*domainuser.Registry, error) {
	var doc registryDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": registryID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domainuser.Registry{}, nil
		}
		return nil, err
	}
	return &domainuser.Registry{AdminAssigned: doc.AdminAssigned, Version: doc.Version}, nil
}

func (r *RegistryRepository) Save(ctx context.Context, reg *domainuser.Registry) error {
	doc := registryDocument{ID: registryID, AdminAssigned: reg.AdminAssigned, Version: reg.Version + 1}
	if err := saveVersioned(ctx, r.col, registryID, reg.Version, doc); err != nil {
		return err
	}
	reg.Version = doc.Version
	return nil
}

var (
	_ domaindeposits.Repository     = (*DepositRepository)(nil)
	_ domainbooking.Repository      = (*BookingRepository)(nil)
	_ domainuser.Repository         = (*UserRepository)(nil)
	_ domainuser.RegistryRepository = (*RegistryRepository)(nil)
)
