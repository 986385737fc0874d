package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository общие операции над одной коллекцией
type Repository[T any] struct {
	collection *mongo.Collection
}

// NewRepository создаёт репозиторий для коллекции
func NewRepository[T any](db *mongo.Database, collectionName string) *Repository[T] {
	return &Repository[T]{
		collection: db.Collection(collectionName),
	}
}

// Collection возвращает коллекцию
func (r *Repository[T]) Collection() *mongo.Collection {
	return r.collection
}

// Create вставляет документ
func (r *Repository[T]) Create(ctx context.Context, document *T) error {
	_, err := r.collection.InsertOne(ctx, document)
	return err
}

// FindOne находит один документ; nil, nil если не найден
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var result T
	err := r.collection.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// FindAll находит все документы по фильтру
func (r *Repository[T]) FindAll(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := r.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*T
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Apply выполняет произвольное обновление одного документа
func (r *Repository[T]) Apply(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return r.collection.UpdateOne(ctx, filter, update)
}

// ApplyMany выполняет обновление всех подходящих документов
func (r *Repository[T]) ApplyMany(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return r.collection.UpdateMany(ctx, filter, update)
}

// DeleteOne удаляет один документ по фильтру
func (r *Repository[T]) DeleteOne(ctx context.Context, filter bson.M) (*mongo.DeleteResult, error) {
	return r.collection.DeleteOne(ctx, filter)
}

// EnsureIndexes создаёт индексы, если их ещё нет
func (r *Repository[T]) EnsureIndexes(ctx context.Context, models ...mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}
