package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/UkralStul/strings-feed-service/internal/domain"
	"github.com/UkralStul/strings-feed-service/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	postsCollection   = "posts"
	usersCollection   = "users"
	followsCollection = "follows"
)

// Store реализует интерфейс Storage поверх MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New подключается к MongoDB, проверяет соединение и создает индексы.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}

	if _, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		unique(bson.D{{Key: "username", Value: 1}}),
		unique(bson.D{{Key: "email", Value: 1}}),
	}); err != nil {
		return err
	}
	if _, err := s.db.Collection(followsCollection).Indexes().CreateOne(ctx,
		unique(bson.D{{Key: "followerId", Value: 1}, {Key: "followingId", Value: 1}}),
	); err != nil {
		return err
	}
	_, err := s.db.Collection(postsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) posts() *mongo.Collection   { return s.db.Collection(postsCollection) }
func (s *Store) users() *mongo.Collection   { return s.db.Collection(usersCollection) }
func (s *Store) follows() *mongo.Collection { return s.db.Collection(followsCollection) }

// === Post Methods ===

// authorLookup присоединяет автора к посту без _id и пароля.
func authorLookup() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "authorId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "userDetails"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$userDetails"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "userDetails._id", Value: false},
			{Key: "userDetails.password", Value: false},
		}}},
	}
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	pipeline := append(authorLookup(), bson.D{{Key: "$sort", Value: bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	}}})

	docs, err := s.aggregatePosts(ctx, pipeline)
	if err != nil {
		return nil, domain.StoreFailure("get posts", err)
	}
	posts := make([]*domain.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toDomain())
	}
	return posts, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrPostNotFound()
	}
	pipeline := append(mongo.Pipeline{{{Key: "$match", Value: bson.D{{Key: "_id", Value: oid}}}}}, authorLookup()...)

	docs, err := s.aggregatePosts(ctx, pipeline)
	if err != nil {
		return nil, domain.StoreFailure("get post", err)
	}
	if len(docs) == 0 {
		return nil, storage.ErrPostNotFound()
	}
	return docs[0].toDomain(), nil
}

func (s *Store) aggregatePosts(ctx context.Context, pipeline mongo.Pipeline) ([]postDocument, error) {
	cursor, err := s.posts().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	authorID, err := bson.ObjectIDFromHex(post.AuthorID)
	if err != nil {
		return nil, domain.Validation("Author ID is invalid")
	}
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := postDocument{
		Content:   post.Content,
		Tags:      tags,
		ImgURL:    post.ImgURL,
		AuthorID:  authorID,
		Comments:  []commentDocument{},
		Likes:     []likeDocument{},
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	res, err := s.posts().InsertOne(ctx, doc)
	if err != nil {
		return nil, domain.StoreFailure("create post", err)
	}

	var stored postDocument
	if err := s.posts().FindOne(ctx, bson.D{{Key: "_id", Value: res.InsertedID}}).Decode(&stored); err != nil {
		return nil, domain.StoreFailure("read created post", err)
	}
	return stored.toDomain(), nil
}

func (s *Store) HasLike(ctx context.Context, postID, username string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return false, nil
	}
	n, err := s.posts().CountDocuments(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "likes.username", Value: username},
	})
	if err != nil {
		return false, domain.StoreFailure("check like", err)
	}
	return n > 0, nil
}

func (s *Store) AppendComment(ctx context.Context, postID string, comment domain.Comment, updatedAt time.Time) (*domain.Comment, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return nil, storage.ErrPostNotFound()
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "comments", Value: commentDocument{
			Content:   comment.Content,
			Username:  comment.Username,
			CreatedAt: comment.CreatedAt,
			UpdatedAt: comment.UpdatedAt,
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: updatedAt}}},
	}

	var doc postDocument
	err = s.posts().FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrPostNotFound()
		}
		return nil, domain.StoreFailure("append comment", err)
	}
	if len(doc.Comments) == 0 {
		return nil, domain.StoreFailure("append comment", errors.New("comment missing after update"))
	}
	added := doc.Comments[len(doc.Comments)-1].toDomain()
	return &added, nil
}

func (s *Store) AppendLike(ctx context.Context, postID string, like domain.Like, updatedAt time.Time) (*domain.Like, error) {
	oid, err := bson.ObjectIDFromHex(postID)
	if err != nil {
		return nil, storage.ErrPostNotFound()
	}
	// Условие $ne делает проверку дубликата и вставку одной атомарной операцией.
	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "likes.username", Value: bson.D{{Key: "$ne", Value: like.Username}}},
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "likes", Value: likeDocument{
			Username:  like.Username,
			CreatedAt: like.CreatedAt,
			UpdatedAt: like.UpdatedAt,
		}}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: updatedAt}}},
	}

	var doc postDocument
	err = s.posts().FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		if len(doc.Likes) == 0 {
			return nil, domain.StoreFailure("append like", errors.New("like missing after update"))
		}
		added := doc.Likes[len(doc.Likes)-1].toDomain()
		return &added, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.StoreFailure("append like", err)
	}

	// Ничего не обновилось: либо поста нет, либо лайк уже стоит.
	n, err := s.posts().CountDocuments(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return nil, domain.StoreFailure("append like", err)
	}
	if n == 0 {
		return nil, storage.ErrPostNotFound()
	}
	return nil, domain.Duplicate("User has already liked this post")
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, err := s.GetUserByUsername(ctx, user.Username); err == nil {
		return nil, domain.Duplicate("Username already exists")
	}
	if _, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return nil, domain.Duplicate("Email already exists")
	}

	doc := userDocument{Name: user.Name, Username: user.Username, Email: user.Email, Password: user.Password}
	res, err := s.users().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.Duplicate("Username or email already exists")
		}
		return nil, domain.StoreFailure("create user", err)
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, storage.ErrUserNotFound()
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *Store) findUser(ctx context.Context, filter bson.D) (*domain.User, error) {
	var doc userDocument
	if err := s.users().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrUserNotFound()
		}
		return nil, domain.StoreFailure("get user", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) SearchUsers(ctx context.Context, query string) ([]*domain.User, error) {
	pattern := bson.D{
		{Key: "$regex", Value: regexp.QuoteMeta(query)},
		{Key: "$options", Value: "i"},
	}
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name", Value: pattern}},
		bson.D{{Key: "username", Value: pattern}},
	}}}

	cursor, err := s.users().Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetProjection(bson.D{{Key: "password", Value: 0}}))
	if err != nil {
		return nil, domain.StoreFailure("search users", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.StoreFailure("search users", err)
	}
	return usersToDomain(docs), nil
}

func (s *Store) GetFollowings(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(ctx, "followerId", "followingId", userID)
}

func (s *Store) GetFollowers(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.followPeers(ctx, "followingId", "followerId", userID)
}

// followPeers: $match по follows, $lookup в users и пользователь вместо связи.
func (s *Store) followPeers(ctx context.Context, matchField, peerField, userID string) ([]*domain.User, error) {
	oid, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return []*domain.User{}, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: matchField, Value: oid}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: peerField},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "user"},
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$user"}}}},
		{{Key: "$project", Value: bson.D{{Key: "password", Value: 0}}}},
	}

	cursor, err := s.follows().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.StoreFailure("get follow peers", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.StoreFailure("get follow peers", err)
	}
	return usersToDomain(docs), nil
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	result := make(map[string]*domain.User, len(oids))
	if len(oids) == 0 {
		return result, nil
	}

	cursor, err := s.users().Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}})
	if err != nil {
		return nil, domain.StoreFailure("get users by ids", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.StoreFailure("get users by ids", err)
	}
	for i := range docs {
		u := docs[i].toDomain()
		result[u.ID] = u
	}
	return result, nil
}

// === Follow Methods ===

func followFilter(followerID, followingID string) (bson.D, bool) {
	follower, err := bson.ObjectIDFromHex(followerID)
	if err != nil {
		return nil, false
	}
	following, err := bson.ObjectIDFromHex(followingID)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "followerId", Value: follower}, {Key: "followingId", Value: following}}, true
}

func (s *Store) GetFollow(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	filter, ok := followFilter(followerID, followingID)
	if !ok {
		return nil, domain.NotFound("follow not found")
	}
	var doc followDocument
	if err := s.follows().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("follow not found")
		}
		return nil, domain.StoreFailure("get follow", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error) {
	filter, ok := followFilter(follow.FollowerID, follow.FollowingID)
	if !ok {
		return nil, domain.Validation("Follower ID and Following ID are required")
	}
	doc := followDocument{
		FollowerID:  filter[0].Value.(bson.ObjectID),
		FollowingID: filter[1].Value.(bson.ObjectID),
		CreatedAt:   follow.CreatedAt,
		UpdatedAt:   follow.UpdatedAt,
	}
	res, err := s.follows().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.Duplicate("You are already following this user")
		}
		return nil, domain.StoreFailure("create follow", err)
	}

	var stored followDocument
	if err := s.follows().FindOne(ctx, bson.D{{Key: "_id", Value: res.InsertedID}}).Decode(&stored); err != nil {
		return nil, domain.StoreFailure("read created follow", err)
	}
	return stored.toDomain(), nil
}

func (s *Store) DeleteFollow(ctx context.Context, followerID, followingID string) error {
	filter, ok := followFilter(followerID, followingID)
	if !ok {
		return domain.NotFound("You are not following this user")
	}
	res, err := s.follows().DeleteOne(ctx, filter)
	if err != nil {
		return domain.StoreFailure("delete follow", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFound("You are not following this user")
	}
	return nil
}
