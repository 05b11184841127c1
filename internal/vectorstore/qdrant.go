package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"applicant-rag/internal/domain"
)

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

type Qdrant struct {
	client *qd.Client

	mu   sync.Mutex
	dims map[string]int
}

func NewQdrant(cfg QdrantConfig) (*Qdrant, error) {
	client, err := qd.NewClient(&qd.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client failed: %w", err)
	}
	return &Qdrant{client: client, dims: make(map[string]int)}, nil
}

func (q *Qdrant) Ping(ctx context.Context) error {
	_, err := q.client.HealthCheck(ctx)
	return err
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func (q *Qdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	ok, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("qdrant collection exists failed: %w", err)
	}
	return ok, nil
}

func (q *Qdrant) CreateCollection(ctx context.Context, name string, dimension int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	err := q.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: name,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(dimension),
			Distance: qd.Distance_Cosine,
		}),
	})
	if status.Code(err) == codes.AlreadyExists {
		return ErrCollectionExists
	}
	if err != nil {
		return fmt.Errorf("qdrant create collection failed: %w", err)
	}
	q.mu.Lock()
	q.dims[name] = dimension
	q.mu.Unlock()
	return nil
}

func (q *Qdrant) dimension(ctx context.Context, collection string) (int, error) {
	q.mu.Lock()
	d, ok := q.dims[collection]
	q.mu.Unlock()
	if ok {
		return d, nil
	}

	info, err := q.client.GetCollectionInfo(ctx, collection)
	if status.Code(err) == codes.NotFound {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return 0, fmt.Errorf("qdrant collection info failed: %w", err)
	}
	d = int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	q.mu.Lock()
	q.dims[collection] = d
	q.mu.Unlock()
	return d, nil
}

// Upload sends every point in one waited upsert, so a failure leaves the
// collection unchanged.
func (q *Qdrant) Upload(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	want, err := q.dimension(ctx, collection)
	if err != nil {
		return err
	}
	if err := checkDimensions(collection, want, points); err != nil {
		return err
	}

	structs := make([]*qd.PointStruct, 0, len(points))
	for _, p := range points {
		payload, err := qd.TryValueMap(payloadMap(p.Payload))
		if err != nil {
			return fmt.Errorf("build qdrant payload failed: %w", err)
		}
		structs = append(structs, &qd.PointStruct{
			Id: &qd.PointId{PointIdOptions: &qd.PointId_Uuid{Uuid: uuid.NewString()}},
			Vectors: &qd.Vectors{
				VectorsOptions: &qd.Vectors_Vector{Vector: &qd.Vector{Data: p.Vector}},
			},
			Payload: payload,
		})
	}

	wait := true
	_, err = q.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Hit, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	want, err := q.dimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != want {
		return nil, &DimensionMismatchError{Collection: collection, Want: want, Got: len(vector)}
	}

	limit := uint64(k)
	req := &qd.QueryPoints{
		CollectionName: collection,
		Query:          qd.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qd.NewWithPayload(true),
	}
	if !filter.Empty() {
		var should []*qd.Condition
		if len(filter.Tags) > 0 {
			should = append(should, qd.NewMatchKeywords("tag", filter.tagStrings()...))
		}
		if len(filter.Filenames) > 0 {
			should = append(should, qd.NewMatchKeywords("filename", filter.Filenames...))
		}
		req.Filter = &qd.Filter{Should: should}
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}
	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{
			ID:      p.GetId().GetUuid(),
			Score:   p.GetScore(),
			Payload: payloadFromQdrant(p.GetPayload()),
		})
	}
	return hits, nil
}

func (q *Qdrant) Delete(ctx context.Context, collection string, filter DeleteFilter) error {
	if err := filter.Validate(); err != nil {
		return err
	}
	wait := true
	_, err := q.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points: qd.NewPointsSelectorFilter(&qd.Filter{
			Must: []*qd.Condition{
				qd.NewMatch("tag", filter.Tag.String()),
				qd.NewMatch("filename", filter.Filename),
			},
		}),
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func payloadMap(p Payload) map[string]any {
	pages := make([]any, 0, len(p.Metadata.Pages))
	for _, n := range p.Metadata.Pages {
		pages = append(pages, int64(n))
	}
	return map[string]any{
		"tag":          p.Tag.String(),
		"filename":     p.Filename,
		"page_content": p.PageContent,
		"metadata": map[string]any{
			"source": p.Metadata.Source,
			"page":   int64(p.Metadata.Page),
			"pages":  pages,
		},
	}
}

func payloadFromQdrant(m map[string]*qd.Value) Payload {
	var p Payload
	if tag, err := domain.ParseTag(m["tag"].GetStringValue()); err == nil {
		p.Tag = tag
	}
	p.Filename = m["filename"].GetStringValue()
	p.PageContent = m["page_content"].GetStringValue()

	meta := m["metadata"].GetStructValue().GetFields()
	p.Metadata.Source = meta["source"].GetStringValue()
	p.Metadata.Page = int(meta["page"].GetIntegerValue())
	for _, v := range meta["pages"].GetListValue().GetValues() {
		p.Metadata.Pages = append(p.Metadata.Pages, int(v.GetIntegerValue()))
	}
	return p
}
