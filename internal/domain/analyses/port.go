package analyses

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Create(ctx context.Context, a *PolicyAnalysis) error
	Get(ctx context.Context, id AnalysisID) (*PolicyAnalysis, error)
	List(ctx context.Context) ([]*PolicyAnalysis, error)
	UpdateUnderpayment(ctx context.Context, id AnalysisID, risk UnderpaymentRisk, updatedAt time.Time) error
}

// Extractor port: turns PDF bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, filename string, pdf []byte) (string, error)
}

// Inspector port: local structural check of an uploaded PDF.
type Inspector interface {
	PageCount(ctx context.Context, pdf []byte) (int, error)
}

// PDFArchive port (interface untuk penyimpanan PDF asli)
type PDFArchive interface {
	Put(ctx context.Context, key string, pdf []byte) error
	Remove(ctx context.Context, key string) error
}
