package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/ternarybob/arbor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mandate-ai/mandate/internal/common"
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// QdrantStore owns all Qdrant operations. Chunk vectors carry the
// access payload so visibility filtering happens inside the index.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
	logger      arbor.ILogger
}

// NewQdrantStore connects to Qdrant at the configured gRPC address
func NewQdrantStore(config *common.VectorConfig, dimension int, logger arbor.ILogger) (interfaces.VectorStore, error) {
	conn, err := grpc.NewClient(config.QdrantAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant %s: %w", config.QdrantAddr, err)
	}

	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  config.Collection,
		dimension:   dimension,
		logger:      logger,
	}, nil
}

// Close closes the underlying gRPC connection
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if it does not exist
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return models.WrapError(models.KindIndexFailure, "failed to list collections", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return models.WrapError(models.KindIndexFailure,
			fmt.Sprintf("failed to create collection %s", s.collection), err)
	}

	s.logger.Info().
		Str("collection", s.collection).
		Int("dimension", s.dimension).
		Msg("Vector collection created")

	return nil
}

// pointID derives a stable UUID from the doc and chunk index so
// re-embedding overwrites rather than duplicates.
func pointID(docID string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s#%d", docID, chunkIndex))).String()
}

// Upsert stores chunk vectors with their filterable payload
func (s *QdrantStore) Upsert(ctx context.Context, points []interfaces.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	pbPoints := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		if len(p.Vector) != s.dimension {
			return models.NewError(models.KindIndexFailure,
				fmt.Sprintf("vector dimension %d does not match collection dimension %d", len(p.Vector), s.dimension))
		}

		payload := map[string]*pb.Value{
			"doc_id":          {Kind: &pb.Value_StringValue{StringValue: p.DocID}},
			"chunk_index":     {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
			"text":            {Kind: &pb.Value_StringValue{StringValue: p.Text}},
			"section_header":  {Kind: &pb.Value_StringValue{StringValue: p.SectionHeader}},
			"filename":        {Kind: &pb.Value_StringValue{StringValue: p.Filename}},
			"institution_id":  {Kind: &pb.Value_StringValue{StringValue: p.InstitutionID}},
			"uploader_id":     {Kind: &pb.Value_StringValue{StringValue: p.UploaderID}},
			"visibility":      {Kind: &pb.Value_StringValue{StringValue: p.Visibility}},
			"approval_status": {Kind: &pb.Value_StringValue{StringValue: p.ApprovalStatus}},
			"year":            {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.Year)}},
			"document_type":   {Kind: &pb.Value_StringValue{StringValue: p.DocumentType}},
		}

		pbPoints[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(p.DocID, p.ChunkIndex)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         pbPoints,
	})
	if err != nil {
		return models.WrapError(models.KindIndexFailure,
			fmt.Sprintf("failed to upsert %d points", len(points)), err)
	}
	return nil
}

// DeleteByDoc removes all points for a document
func (s *QdrantStore) DeleteByDoc(ctx context.Context, docID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch("doc_id", docID)},
				},
			},
		},
	})
	if err != nil {
		return models.WrapError(models.KindIndexFailure,
			fmt.Sprintf("failed to delete vectors for %s", docID), err)
	}
	return nil
}

// Search runs filtered k-NN similarity search
func (s *QdrantStore) Search(ctx context.Context, vector []float32, filters *interfaces.VectorFilters, k int) ([]interfaces.VectorHit, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if filter := buildFilter(filters); filter != nil {
		req.Filter = filter
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, models.WrapError(models.KindIndexFailure, "vector search failed", err)
	}

	hits := make([]interfaces.VectorHit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		payload := r.GetPayload()
		hits[i] = interfaces.VectorHit{
			DocID:          payload["doc_id"].GetStringValue(),
			ChunkIndex:     int(payload["chunk_index"].GetIntegerValue()),
			Score:          float64(r.GetScore()),
			Text:           payload["text"].GetStringValue(),
			SectionHeader:  payload["section_header"].GetStringValue(),
			Filename:       payload["filename"].GetStringValue(),
			Visibility:     payload["visibility"].GetStringValue(),
			ApprovalStatus: payload["approval_status"].GetStringValue(),
			InstitutionID:  payload["institution_id"].GetStringValue(),
			UploaderID:     payload["uploader_id"].GetStringValue(),
		}
	}
	return hits, nil
}

// buildFilter converts VectorFilters into a Qdrant filter. Intent
// filters (years, types) are Must clauses; the access filter becomes a
// nested Should so any one grant branch admits the point.
func buildFilter(filters *interfaces.VectorFilters) *pb.Filter {
	if filters == nil {
		return nil
	}

	var must []*pb.Condition
	if len(filters.DocumentTypes) > 0 {
		must = append(must, fieldMatchAny("document_type", filters.DocumentTypes))
	}
	if len(filters.Years) > 0 {
		years := make([]int64, len(filters.Years))
		for i, y := range filters.Years {
			years[i] = int64(y)
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key: "year",
					Match: &pb.Match{
						MatchValue: &pb.Match_Integers{Integers: &pb.RepeatedIntegers{Integers: years}},
					},
				},
			},
		})
	}

	if access := buildAccessCondition(filters.Access); access != nil {
		must = append(must, access)
	}

	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

// buildAccessCondition renders the access grant branches
func buildAccessCondition(access *interfaces.AccessFilter) *pb.Condition {
	if access == nil {
		return nil
	}

	var branches []*pb.Condition
	if len(access.OpenVisibilities) > 0 {
		branches = append(branches, fieldMatchAny("visibility", access.OpenVisibilities))
	}
	if access.InstitutionID != "" && len(access.InstitutionVisibilities) > 0 {
		branches = append(branches, &pb.Condition{
			ConditionOneOf: &pb.Condition_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{
						fieldMatchAny("visibility", access.InstitutionVisibilities),
						fieldMatch("institution_id", access.InstitutionID),
					},
				},
			},
		})
	}
	if access.UploaderID != "" {
		branches = append(branches, fieldMatch("uploader_id", access.UploaderID))
	}
	if access.PendingApprovalVisible {
		branches = append(branches, fieldMatch("approval_status", "pending"))
	}

	if len(branches) == 0 {
		// A caller with no grants sees nothing; match an impossible value
		branches = append(branches, fieldMatch("visibility", "__none__"))
	}

	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Filter{
			Filter: &pb.Filter{Should: branches},
		},
	}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func fieldMatchAny(key string, values []string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keywords{Keywords: &pb.RepeatedStrings{Strings: values}},
				},
			},
		},
	}
}
