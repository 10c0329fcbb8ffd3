// Package events fans out tenant mutation events to a pluggable sink:
// a cloud queue for production, an in-process channel for tests, or a
// no-op sink when a tenant has no queue configured. Delivery is
// fire-and-forget — publishers never block the caller's transaction on
// a slow or unreachable sink, and ordering across messages is not
// guaranteed.
package events

import (
	"context"

	"github.com/docbox-nz/docbox/internal/models"
)

// Kind names the event variant carried by a Message, mirroring the
// tagged union of events the original implementation publishes per
// entity.
type Kind string

const (
	KindFileCreated   Kind = "FileCreated"
	KindFileUpdated   Kind = "FileUpdated"
	KindFileDeleted   Kind = "FileDeleted"
	KindFolderCreated Kind = "FolderCreated"
	KindFolderUpdated Kind = "FolderUpdated"
	KindFolderDeleted Kind = "FolderDeleted"
	KindLinkCreated   Kind = "LinkCreated"
	KindLinkUpdated   Kind = "LinkUpdated"
	KindLinkDeleted   Kind = "LinkDeleted"
)

// Message is the fan-out envelope for a single tenant event: a kind tag,
// the scope the data belongs to, and the entity payload itself. Data is
// one of *models.File, *models.Folder, or *models.Link depending on
// Kind, matching the WithScope<T> wrapper the original publishes.
type Message struct {
	Kind  Kind                    `json:"kind"`
	Scope models.DocumentBoxScope `json:"scope"`
	Data  any                     `json:"data"`
}

// FileCreated builds a FileCreated message scoped to scope.
func FileCreated(scope models.DocumentBoxScope, file *models.File) Message {
	return Message{Kind: KindFileCreated, Scope: scope, Data: file}
}

// FileUpdated builds a FileUpdated message scoped to scope.
func FileUpdated(scope models.DocumentBoxScope, file *models.File) Message {
	return Message{Kind: KindFileUpdated, Scope: scope, Data: file}
}

// FileDeleted builds a FileDeleted message scoped to scope.
func FileDeleted(scope models.DocumentBoxScope, file *models.File) Message {
	return Message{Kind: KindFileDeleted, Scope: scope, Data: file}
}

// FolderCreated builds a FolderCreated message scoped to scope.
func FolderCreated(scope models.DocumentBoxScope, folder *models.Folder) Message {
	return Message{Kind: KindFolderCreated, Scope: scope, Data: folder}
}

// FolderUpdated builds a FolderUpdated message scoped to scope.
func FolderUpdated(scope models.DocumentBoxScope, folder *models.Folder) Message {
	return Message{Kind: KindFolderUpdated, Scope: scope, Data: folder}
}

// FolderDeleted builds a FolderDeleted message scoped to scope.
func FolderDeleted(scope models.DocumentBoxScope, folder *models.Folder) Message {
	return Message{Kind: KindFolderDeleted, Scope: scope, Data: folder}
}

// LinkCreated builds a LinkCreated message scoped to scope.
func LinkCreated(scope models.DocumentBoxScope, link *models.Link) Message {
	return Message{Kind: KindLinkCreated, Scope: scope, Data: link}
}

// LinkUpdated builds a LinkUpdated message scoped to scope.
func LinkUpdated(scope models.DocumentBoxScope, link *models.Link) Message {
	return Message{Kind: KindLinkUpdated, Scope: scope, Data: link}
}

// LinkDeleted builds a LinkDeleted message scoped to scope.
func LinkDeleted(scope models.DocumentBoxScope, link *models.Link) Message {
	return Message{Kind: KindLinkDeleted, Scope: scope, Data: link}
}

// Publisher fans out Messages for one tenant. Implementations must not
// return an error that the caller is expected to act on: Publish is
// best-effort and failures are only ever logged by the implementation
// itself, never surfaced to the upload/provisioner pipelines that call
// it mid-transaction.
type Publisher interface {
	// Publish sends msg to the sink. It returns promptly; slow or
	// unreachable sinks must not block the caller beyond ctx's deadline.
	Publish(ctx context.Context, msg Message)

	// Close releases any resources (e.g. an HTTP client) held by the
	// publisher. It is safe to call Close more than once.
	Close()
}
