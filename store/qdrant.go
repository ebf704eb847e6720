package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docqa/types"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore implements VectorIndex on a qdrant server over gRPC. All
// points live in one collection; isolation comes from a mandatory
// user_id payload condition attached to every read and delete.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	dimension   int
	logger      *slog.Logger
}

func NewQdrantStore(host string, port int, collection string, dimension int) (*QdrantStore, error) {
	conn, err := grpc.Dial(fmt.Sprintf("%s:%d", host, port),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantStore{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		dimension:   dimension,
		logger:      slog.Default().With("component", "qdrant"),
	}, nil
}

// Init creates the collection if it is missing.
func (s *QdrantStore) Init(ctx context.Context) error {
	resp, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(s.dimension),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}
	s.logger.Info("created qdrant collection", "collection", s.collection, "dimension", s.dimension)
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, namespace string, points []Point) error {
	wait := true
	upsert := &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
	}
	for _, p := range points {
		// Same deterministic key as the pg store, folded into a UUID
		// because qdrant point IDs must be UUIDs or integers.
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(pointID(namespace, p))).String()
		upsert.Points = append(upsert.Points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: id},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: p.Vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"user_id":      stringValue(namespace),
				"content_hash": stringValue(p.ContentHash),
				"filename":     stringValue(p.Filename),
				"chunk_index":  integerValue(int64(p.ChunkIndex)),
				"text":         stringValue(p.Text),
				"uploaded_at":  stringValue(p.UploadedAt.Format(time.RFC3339)),
			},
		})
	}

	if _, err := s.points.Upsert(ctx, upsert); err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, namespace string, vector []float32, topK int, f Filter) ([]Match, error) {
	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		Filter:         s.filter(namespace, f),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload := hit.GetPayload()
		matches = append(matches, Match{
			ContentHash: payload["content_hash"].GetStringValue(),
			ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
			Filename:    payload["filename"].GetStringValue(),
			Text:        payload["text"].GetStringValue(),
			Similarity:  float64(hit.GetScore()),
		})
	}
	return matches, nil
}

func (s *QdrantStore) Delete(ctx context.Context, namespace string, f Filter) error {
	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: s.filter(namespace, f),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	return nil
}

func (s *QdrantStore) Count(ctx context.Context, namespace string, f Filter) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.collection,
		Filter:         s.filter(namespace, f),
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", types.ErrIndexService, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// filter builds the payload filter. The user_id condition is always
// present; callers cannot opt out of namespace scoping.
func (s *QdrantStore) filter(namespace string, f Filter) *qdrantclient.Filter {
	must := []*qdrantclient.Condition{keywordCondition("user_id", namespace)}
	if f.Filename != "" {
		must = append(must, keywordCondition("filename", f.Filename))
	}
	if f.ContentHash != "" {
		must = append(must, keywordCondition("content_hash", f.ContentHash))
	}
	return &qdrantclient.Filter{Must: must}
}

func keywordCondition(key, value string) *qdrantclient.Condition {
	return &qdrantclient.Condition{
		ConditionOneOf: &qdrantclient.Condition_Field{
			Field: &qdrantclient.FieldCondition{
				Key: key,
				Match: &qdrantclient.Match{
					MatchValue: &qdrantclient.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func stringValue(v string) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: v}}
}

func integerValue(v int64) *qdrantclient.Value {
	return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: v}}
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
