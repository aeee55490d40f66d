package metadata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/ingestpipe/internal/ingestor/models"
	"github.com/dmitrijs2005/ingestpipe/internal/logging"
)

// PostgresStore is the alternate keyed-store backend. The table is owned by
// the store operator, not by this code; the expected shape is:
//
//	CREATE TABLE file_metadata (
//	    filename         TEXT NOT NULL,
//	    upload_timestamp TEXT NOT NULL,
//	    bucket           TEXT NOT NULL,
//	    event_time       TEXT NOT NULL,
//	    PRIMARY KEY (filename, upload_timestamp)
//	);
type PostgresStore struct {
	db     *sql.DB
	logger logging.Logger
}

func NewPostgresStore(db *sql.DB, logger logging.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) Insert(ctx context.Context, record *models.MetadataRecord) (WriteResult, error) {

	query :=
		`INSERT INTO file_metadata (filename, upload_timestamp, bucket, event_time)
         VALUES ($1, $2, $3, $4)
		 ON CONFLICT (filename, upload_timestamp) DO NOTHING
		 `

	res, err := s.db.ExecContext(ctx, query,
		record.Filename, record.UploadTimestamp, record.Bucket, record.EventTime)

	if err != nil {
		return WriteFailed, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return WriteFailed, fmt.Errorf("db error: %w", err)
	}

	if affected == 0 {
		s.logger.Warn(ctx, "duplicate metadata record suppressed",
			"filename", record.Filename, "upload_timestamp", record.UploadTimestamp)
		return WriteDuplicate, nil
	}

	s.logger.Info(ctx, "metadata record written",
		"filename", record.Filename, "upload_timestamp", record.UploadTimestamp)

	return WriteCreated, nil
}
