package upload

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/docbox-nz/docbox/internal/db"
	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/events"
	"github.com/docbox-nz/docbox/internal/models"
	"github.com/docbox-nz/docbox/internal/search"
	"github.com/docbox-nz/docbox/internal/storage"
)

// Pipeline is the transactional upload pipeline for one tenant, bound to
// that tenant's database pool, storage bucket, search index, event
// publisher, and file processor.
type Pipeline struct {
	Pool      *pgxpool.Pool
	Storage   storage.Storage
	Search    search.Index
	Events    events.Publisher
	Processor Processor
	Logger    *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return zap.NewNop()
}

func (p *Pipeline) processor() Processor {
	if p.Processor != nil {
		return p.Processor
	}
	return NoopProcessor{}
}

// prepared is Phase A's output for one file: the row to insert, the
// generated-file rows to insert alongside it, and the prepared subtree
// of recursively-unpacked additional files.
type prepared struct {
	file       models.CreateFile
	generated  []models.CreateGeneratedFile
	additional []*prepared
}

// Upload runs the full three-phase pipeline for one file: Phase A
// (prepare, no database writes), Phase B (persist, one transaction),
// Phase C (commit, then publish FileCreated events). Any failure before
// the transaction commits triggers a detached background rollback of
// whatever Phase A wrote to storage and search.
func (p *Pipeline) Upload(ctx context.Context, input Input) (*Result, error) {
	state := &ledger{}

	data, err := p.prepare(ctx, input, state, input.unpackIterations())
	if err != nil {
		p.logger().Error("upload phase A failed", zap.Error(err))
		backgroundRollback(p.Storage, p.Search, p.logger(), state)
		return nil, err
	}

	var result *Result
	err = db.WithTx(ctx, p.Pool, func(tx pgx.Tx) error {
		result, err = p.persist(ctx, tx, data)
		return err
	})
	if err != nil {
		p.logger().Error("upload phase B failed", zap.Error(err))
		backgroundRollback(p.Storage, p.Search, p.logger(), state)
		return nil, err
	}

	p.publishCreated(ctx, input.Scope, result)
	return result, nil
}

// prepare implements Phase A for one file, recursing into additional
// files the processor extracted until unpackIterations reaches zero.
func (p *Pipeline) prepare(ctx context.Context, input Input, state *ledger, unpackIterations int) (*prepared, error) {
	uploadMain := true
	key := ""
	if input.FileKey != nil {
		uploadMain = false
		key = *input.FileKey
	} else {
		key = fileKey(string(input.Scope), input.Name)
	}

	output, err := p.processor().Process(ctx, input.Bytes, input.Mime, input.ProcessingConfig)
	if err != nil {
		return nil, docerr.Processing("failed to process file", err)
	}

	fileID := newFileID(input.FixedID)
	encrypted := false
	if output != nil {
		encrypted = output.Encrypted
	}

	record := models.CreateFile{
		ID:           fileID,
		ParentFileID: input.ParentFileID,
		Name:         input.Name,
		Mime:         input.Mime,
		FileKey:      key,
		FolderID:     input.FolderID,
		Hash:         hashBytes(input.Bytes),
		Size:         clampSize(len(input.Bytes)),
		Encrypted:    encrypted,
		CreatedBy:    input.CreatedBy,
		CreatedAt:    nowFunc(),
	}

	result := &prepared{file: record}

	if output != nil {
		generated, err := p.uploadGenerated(ctx, state, record, output.UploadQueue)
		if err != nil {
			return nil, err
		}
		result.generated = generated

		if unpackIterations > 0 {
			for _, additional := range output.AdditionalFiles {
				childInput := Input{
					FixedID:          additional.FixedID,
					ParentFileID:     &fileID,
					FolderID:         input.FolderID,
					Scope:            input.Scope,
					Name:             additional.Name,
					Mime:             additional.Mime,
					Bytes:            additional.Bytes,
					CreatedBy:        input.CreatedBy,
					ProcessingConfig: input.ProcessingConfig,
				}
				child, err := p.prepare(ctx, childInput, state, unpackIterations-1)
				if err != nil {
					return nil, err
				}
				result.additional = append(result.additional, child)
			}
		}
	}

	if err := p.indexFile(ctx, state, record, input.Scope, output); err != nil {
		return nil, err
	}

	if uploadMain {
		if err := p.Storage.UploadFile(ctx, key, input.Mime, input.Bytes); err != nil {
			return nil, docerr.Dependency("failed to upload file", err)
		}
		state.recordStorageKey(key)
	}

	return result, nil
}

// uploadGenerated writes every queued artifact to storage, recording
// each successful key for rollback before returning the generated-file
// rows Phase B will insert.
func (p *Pipeline) uploadGenerated(ctx context.Context, state *ledger, file models.CreateFile, queue []QueuedUpload) ([]models.CreateGeneratedFile, error) {
	generated := make([]models.CreateGeneratedFile, 0, len(queue))
	for _, item := range queue {
		genKey := fileKey("generated/"+file.ID.String(), string(item.Type))
		if err := p.Storage.UploadFile(ctx, genKey, item.Mime, item.Data); err != nil {
			return nil, docerr.Dependency("failed to upload generated file", err)
		}
		state.recordStorageKey(genKey)

		generated = append(generated, models.CreateGeneratedFile{
			FileID:  file.ID,
			Type:    item.Type,
			FileKey: genKey,
			Mime:    item.Mime,
			Hash:    hashBytes(item.Data),
		})
	}
	return generated, nil
}

// indexFile adds the main file's search entry, recording its id for
// rollback.
func (p *Pipeline) indexFile(ctx context.Context, state *ledger, file models.CreateFile, scope models.DocumentBoxScope, output *Output) error {
	item := search.IndexData{
		Type:        search.ItemFile,
		ItemID:      file.ID.String(),
		FolderID:    &file.FolderID,
		DocumentBox: scope,
		Name:        file.Name,
		Mime:        &file.Mime,
		CreatedAt:   file.CreatedAt,
		CreatedBy:   file.CreatedBy,
	}
	if output != nil && output.IndexMetadata != nil {
		for _, pg := range output.IndexMetadata.Pages {
			item.Pages = append(item.Pages, search.Page{Page: pg.Page, Content: pg.Content})
		}
	}

	if err := p.Search.AddData(ctx, []search.IndexData{item}); err != nil {
		return docerr.Dependency("failed to index file", err)
	}
	state.recordSearchID(file.ID.String())
	return nil
}

// persist implements Phase B: inserting the main file row, its
// generated-file rows, and recursing for every prepared additional file,
// all inside the caller's transaction.
func (p *Pipeline) persist(ctx context.Context, tx pgx.Tx, data *prepared) (*Result, error) {
	if err := db.CreateFile(ctx, tx, data.file); err != nil {
		return nil, err
	}

	result := &Result{
		File: models.File{
			ID:           data.file.ID,
			Name:         data.file.Name,
			Mime:         data.file.Mime,
			FolderID:     data.file.FolderID,
			Hash:         data.file.Hash,
			Size:         data.file.Size,
			Encrypted:    data.file.Encrypted,
			FileKey:      data.file.FileKey,
			ParentFileID: data.file.ParentFileID,
			CreatedAt:    data.file.CreatedAt,
			CreatedBy:    data.file.CreatedBy,
		},
	}

	for _, g := range data.generated {
		if err := db.CreateGeneratedFile(ctx, tx, g); err != nil {
			return nil, err
		}
		result.Generated = append(result.Generated, models.GeneratedFile{
			FileID:  g.FileID,
			Type:    g.Type,
			FileKey: g.FileKey,
			Mime:    g.Mime,
			Hash:    g.Hash,
		})
	}

	for _, child := range data.additional {
		childResult, err := p.persist(ctx, tx, child)
		if err != nil {
			return nil, err
		}
		result.Additional = append(result.Additional, *childResult)
	}

	return result, nil
}

// publishCreated fans out FileCreated for the main file and, recursively,
// every additional file persisted alongside it.
func (p *Pipeline) publishCreated(ctx context.Context, scope models.DocumentBoxScope, result *Result) {
	file := result.File
	p.Events.Publish(ctx, events.FileCreated(scope, &file))
	for i := range result.Additional {
		p.publishCreated(ctx, scope, &result.Additional[i])
	}
}
