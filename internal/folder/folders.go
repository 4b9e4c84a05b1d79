// Package folder manages named groups of scraped records in the local
// store. A company folder can be linked to a contact folder so its records
// enrich the contacts at export time.
package folder

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/store"
)

const (
	contactFoldersKey = "contactFolders"
	companyFoldersKey = "companyFolders"
	folderLinksKey    = "companyFolderLinks"
)

// Manager reads and writes folders in the underlying store.
type Manager struct {
	store store.Store
}

func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

func getMap[V any](ctx context.Context, s store.Store, key string) (map[string]V, error) {
	out := map[string]V{}
	if _, err := s.Get(ctx, key, &out); err != nil {
		return nil, eris.Wrapf(err, "folder: read %s", key)
	}
	if out == nil {
		out = map[string]V{}
	}
	return out, nil
}

// SaveContacts replaces the contents of a contact folder.
func (m *Manager) SaveContacts(ctx context.Context, name string, contacts []model.Contact) error {
	if name == "" {
		return eris.New("folder: name is required")
	}
	folders, err := getMap[[]model.Contact](ctx, m.store, contactFoldersKey)
	if err != nil {
		return err
	}
	folders[name] = contacts
	return eris.Wrap(m.store.Set(ctx, contactFoldersKey, folders), "folder: write contact folders")
}

// Contacts returns the records in a contact folder.
func (m *Manager) Contacts(ctx context.Context, name string) ([]model.Contact, error) {
	folders, err := getMap[[]model.Contact](ctx, m.store, contactFoldersKey)
	if err != nil {
		return nil, err
	}
	contacts, ok := folders[name]
	if !ok {
		return nil, eris.Errorf("folder: contact folder %q not found", name)
	}
	return contacts, nil
}

// SaveCompanies replaces the contents of a company folder.
func (m *Manager) SaveCompanies(ctx context.Context, name string, companies []model.Company) error {
	if name == "" {
		return eris.New("folder: name is required")
	}
	folders, err := getMap[[]model.Company](ctx, m.store, companyFoldersKey)
	if err != nil {
		return err
	}
	folders[name] = companies
	return eris.Wrap(m.store.Set(ctx, companyFoldersKey, folders), "folder: write company folders")
}

// Companies returns the records in a company folder.
func (m *Manager) Companies(ctx context.Context, name string) ([]model.Company, error) {
	folders, err := getMap[[]model.Company](ctx, m.store, companyFoldersKey)
	if err != nil {
		return nil, err
	}
	companies, ok := folders[name]
	if !ok {
		return nil, eris.Errorf("folder: company folder %q not found", name)
	}
	return companies, nil
}

// FolderInfo lists a folder with its record count.
type FolderInfo struct {
	Name  string
	Count int
}

// ListContactFolders lists contact folders sorted by name.
func (m *Manager) ListContactFolders(ctx context.Context) ([]FolderInfo, error) {
	folders, err := getMap[[]model.Contact](ctx, m.store, contactFoldersKey)
	if err != nil {
		return nil, err
	}
	return folderInfos(folders), nil
}

// ListCompanyFolders lists company folders sorted by name.
func (m *Manager) ListCompanyFolders(ctx context.Context) ([]FolderInfo, error) {
	folders, err := getMap[[]model.Company](ctx, m.store, companyFoldersKey)
	if err != nil {
		return nil, err
	}
	return folderInfos(folders), nil
}

func folderInfos[V any](folders map[string][]V) []FolderInfo {
	infos := make([]FolderInfo, 0, len(folders))
	for name, records := range folders {
		infos = append(infos, FolderInfo{Name: name, Count: len(records)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Link ties a company folder to a contact folder. The company records
// will be merged into those contacts at export time.
func (m *Manager) Link(ctx context.Context, companyFolder, contactFolder string) error {
	if _, err := m.Companies(ctx, companyFolder); err != nil {
		return err
	}
	if _, err := m.Contacts(ctx, contactFolder); err != nil {
		return err
	}

	links, err := getMap[string](ctx, m.store, folderLinksKey)
	if err != nil {
		return err
	}
	links[companyFolder] = contactFolder
	return eris.Wrap(m.store.Set(ctx, folderLinksKey, links), "folder: write links")
}

// LinkedCompanies returns the companies of the folder linked to the given
// contact folder, or nil when no folder is linked.
func (m *Manager) LinkedCompanies(ctx context.Context, contactFolder string) ([]model.Company, error) {
	links, err := getMap[string](ctx, m.store, folderLinksKey)
	if err != nil {
		return nil, err
	}
	for companyFolder, linked := range links {
		if linked == contactFolder {
			return m.Companies(ctx, companyFolder)
		}
	}
	return nil, nil
}
