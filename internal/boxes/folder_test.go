package boxes

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/docbox-nz/docbox/internal/docerr"
	"github.com/docbox-nz/docbox/internal/models"
)

func testFolder(scope string, parent *models.FolderID) *models.Folder {
	return &models.Folder{
		ID:             uuid.New(),
		Name:           "folder",
		DocumentBox:    models.DocumentBoxScope(scope),
		ParentFolderID: parent,
	}
}

func TestValidateFolderMove_intoSelf(t *testing.T) {
	root := uuid.New()
	folder := testFolder("test", &root)

	err := validateFolderMove(folder, folder, []models.FolderID{folder.ID})
	if !errors.Is(err, docerr.InvalidInput("")) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}

func TestValidateFolderMove_intoDescendant(t *testing.T) {
	root := uuid.New()
	folder := testFolder("test", &root)
	child := testFolder("test", &folder.ID)
	grandchild := testFolder("test", &child.ID)

	subtree := []models.FolderID{folder.ID, child.ID, grandchild.ID}

	if err := validateFolderMove(folder, child, subtree); err == nil {
		t.Fatal("moving into a direct child must fail")
	}
	if err := validateFolderMove(folder, grandchild, subtree); err == nil {
		t.Fatal("moving into a grandchild must fail")
	}
}

func TestValidateFolderMove_crossBox(t *testing.T) {
	root := uuid.New()
	folder := testFolder("test", &root)
	otherBox := testFolder("other", nil)

	if err := validateFolderMove(folder, otherBox, []models.FolderID{folder.ID}); err == nil {
		t.Fatal("moving across document boxes must fail")
	}
}

func TestValidateFolderMove_validSibling(t *testing.T) {
	root := uuid.New()
	folder := testFolder("test", &root)
	sibling := testFolder("test", &root)

	if err := validateFolderMove(folder, sibling, []models.FolderID{folder.ID}); err != nil {
		t.Fatalf("sibling move should be allowed, got %v", err)
	}
}

func TestCreateDocumentBox_rejectsBadScopes(t *testing.T) {
	s := &Service{}

	if _, err := s.CreateDocumentBox(context.Background(), "", nil); err == nil {
		t.Fatal("empty scope must be rejected")
	}
	if _, err := s.CreateDocumentBox(context.Background(), "scope*", nil); err == nil {
		t.Fatal("wildcard scope must be rejected")
	}
}

func TestCreateFolder_rejectsEmptyName(t *testing.T) {
	s := &Service{}
	_, err := s.CreateFolder(context.Background(), CreateFolderInput{
		Scope:    "test",
		ParentID: uuid.New(),
	})
	if !errors.Is(err, docerr.InvalidInput("")) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}

func TestCreateLink_rejectsInvalidURL(t *testing.T) {
	s := &Service{}
	_, err := s.CreateLink(context.Background(), CreateLinkInput{
		Scope:    "test",
		FolderID: uuid.New(),
		Name:     "L",
		URL:      "not a url",
	})
	if !errors.Is(err, docerr.InvalidInput("")) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}
