// Package enrich orchestrates a full export run: AI domain and name
// lookups, company-record matching and the final workbook write.
package enrich

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/batch"
	"github.com/sells-group/leads-cli/internal/export"
	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/notify"
	"github.com/sells-group/leads-cli/internal/store"
)

// ErrRunInProgress is returned when an export run is already active and
// not yet stale.
var ErrRunInProgress = eris.New("enrich: an export run is already in progress")

// Resolver answers batched AI lookups. Satisfied by *batch.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, task batch.Task, items []string, model string) (map[string]json.RawMessage, error)
}

// Coordinator drives export runs and owns the persisted run status.
type Coordinator struct {
	resolver Resolver
	writer   *export.Writer
	store    store.Store
	catalog  *i18n.Catalog
	notifier notify.Notifier
	log      *zap.Logger

	now   func() time.Time
	newID func() string

	watchdogInterval time.Duration
}

func NewCoordinator(resolver Resolver, writer *export.Writer, s store.Store, catalog *i18n.Catalog, notifier notify.Notifier, log *zap.Logger) *Coordinator {
	return &Coordinator{
		resolver:         resolver,
		writer:           writer,
		store:            s,
		catalog:          catalog,
		notifier:         notifier,
		log:              log,
		now:              time.Now,
		newID:            uuid.NewString,
		watchdogInterval: 30 * time.Second,
	}
}

// Options configures one export run.
type Options struct {
	Folder      string
	Contacts    []model.Contact
	Companies   []model.Company // linked company folder, may be empty
	FindDomains bool
	SplitNames  bool
	Model       string
	OutputDir   string
}

// Result summarizes a completed run.
type Result struct {
	RunID            string
	ContactsPath     string
	DomainsResolved  int
	NamesSplit       int
	CompaniesMatched int
}

// Run enriches opts.Contacts and writes the contact workbook. The two AI
// lookups execute concurrently and fail independently; a failed lookup
// leaves its fields blank rather than aborting the export. The processing
// status is always returned to idle, export failure included.
func (c *Coordinator) Run(ctx context.Context, opts Options) (Result, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return Result{}, err
	}
	if st.State == model.StatusProcessing {
		reset, err := c.ResetStuckStatus(ctx)
		if err != nil {
			return Result{}, err
		}
		if !reset {
			return Result{}, ErrRunInProgress
		}
	}

	res := Result{RunID: c.newID()}
	if err := c.setStatus(ctx, Status{
		State:     model.StatusProcessing,
		RunID:     res.RunID,
		Folder:    opts.Folder,
		StartedAt: c.now().UnixMilli(),
	}); err != nil {
		return Result{}, err
	}

	// The watchdog outlives a stalled Run only until Run's own context
	// dies; a crashed process is covered by the startup reset instead.
	wctx, stopWatchdog := context.WithCancel(ctx)
	go c.watchdog(wctx, c.watchdogInterval)

	defer func() {
		stopWatchdog()
		if err := c.setStatus(context.WithoutCancel(ctx), Status{State: model.StatusIdle}); err != nil {
			c.log.Error("failed to reset export status", zap.Error(err))
		}
	}()

	c.log.Info("export run started",
		zap.String("run_id", res.RunID),
		zap.String("folder", opts.Folder),
		zap.String("model", opts.Model),
		zap.Int("contacts", len(opts.Contacts)),
		zap.Int("linked_companies", len(opts.Companies)),
	)
	c.notifier.Notify(
		c.catalog.Message("exportStartedTitle", nil),
		c.catalog.Message("exportStartedMessage", map[string]string{"folderName": opts.Folder}),
	)

	domainMap, nameMap := c.lookups(ctx, opts)
	res.DomainsResolved = len(domainMap)
	res.NamesSplit = len(nameMap)

	companyIndex := indexCompanies(opts.Companies)
	contacts := make([]model.Contact, len(opts.Contacts))
	for i, contact := range opts.Contacts {
		contacts[i] = mergeContact(contact, opts, domainMap, nameMap, companyIndex)
		if contacts[i].CompanyIndustry != "" || contacts[i].CompanyWebsite != "" || contacts[i].CompanyDescription != "" {
			res.CompaniesMatched++
		}
	}

	withCompanies := len(companyIndex) > 0
	res.ContactsPath = filepath.Join(opts.OutputDir, export.ContactsFilename(opts.Folder, withCompanies))
	if err := c.writer.WriteContacts(res.ContactsPath, contacts, withCompanies); err != nil {
		c.notifier.Notify(
			c.catalog.Message("exportErrorTitle", nil),
			c.catalog.Message("exportErrorMessage", map[string]string{"errorMessage": err.Error()}),
		)
		return res, err
	}

	c.log.Info("export run finished",
		zap.String("run_id", res.RunID),
		zap.String("path", res.ContactsPath),
		zap.Int("domains_resolved", res.DomainsResolved),
		zap.Int("names_split", res.NamesSplit),
		zap.Int("companies_matched", res.CompaniesMatched),
	)
	c.notifier.Notify(
		c.catalog.Message("exportCompleteTitle", nil),
		c.catalog.Message("exportCompleteMessage", map[string]string{"folderName": opts.Folder}),
	)
	return res, nil
}

// ExportCompanies writes the company workbook for a folder. No AI calls
// and no status handling are involved.
func (c *Coordinator) ExportCompanies(ctx context.Context, folder string, companies []model.Company, outputDir string) (string, error) {
	path := filepath.Join(outputDir, export.CompaniesFilename(folder))
	if err := c.writer.WriteCompanies(path, companies); err != nil {
		c.notifier.Notify(
			c.catalog.Message("exportErrorTitle", nil),
			c.catalog.Message("exportErrorMessage", map[string]string{"errorMessage": err.Error()}),
		)
		return "", err
	}
	c.notifier.Notify(
		c.catalog.Message("exportCompleteTitle", nil),
		c.catalog.Message("exportCompleteMessage", map[string]string{"folderName": folder}),
	)
	return path, nil
}

// lookups runs the enabled AI tasks concurrently. Each task that fails is
// logged and yields an empty map.
func (c *Coordinator) lookups(ctx context.Context, opts Options) (map[string]string, map[string]model.NameParts) {
	domainMap := map[string]string{}
	nameMap := map[string]model.NameParts{}

	var wg sync.WaitGroup
	if opts.FindDomains {
		companies := make([]string, 0, len(opts.Contacts))
		for _, contact := range opts.Contacts {
			if contact.FilteredCompany != "" {
				companies = append(companies, contact.FilteredCompany)
			}
		}
		if len(companies) == 0 {
			c.log.Info("no companies eligible for domain search")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				raw, err := c.resolver.Resolve(ctx, batch.Domains, companies, opts.Model)
				if err != nil {
					c.log.Error("domain lookup failed", zap.Error(err))
					return
				}
				domainMap = decodeDomains(raw)
			}()
		}
	}

	if opts.SplitNames {
		names := make([]string, 0, len(opts.Contacts))
		for _, contact := range opts.Contacts {
			if contact.PersonName != "" {
				names = append(names, contact.PersonName)
			}
		}
		if len(names) > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				raw, err := c.resolver.Resolve(ctx, batch.Names, names, opts.Model)
				if err != nil {
					c.log.Error("name split lookup failed", zap.Error(err))
					return
				}
				nameMap = decodeNames(raw)
			}()
		}
	}

	wg.Wait()
	return domainMap, nameMap
}

// decodeDomains keeps entries whose value is a JSON string. Anything
// else came back malformed and is dropped.
func decodeDomains(raw map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(raw))
	for company, msg := range raw {
		var domain string
		if err := json.Unmarshal(msg, &domain); err != nil || domain == "" {
			continue
		}
		out[company] = domain
	}
	return out
}

// decodeNames keeps entries shaped like [first, last, title]. Shorter
// arrays are padded, longer ones truncated.
func decodeNames(raw map[string]json.RawMessage) map[string]model.NameParts {
	out := make(map[string]model.NameParts, len(raw))
	for name, msg := range raw {
		var parts []string
		if err := json.Unmarshal(msg, &parts); err != nil || len(parts) == 0 {
			continue
		}
		var p model.NameParts
		copy(p[:], parts)
		out[name] = p
	}
	return out
}

// indexCompanies maps every lowercase identifier of each company back to
// its record. First writer wins on identifier collisions.
func indexCompanies(companies []model.Company) map[string]model.Company {
	index := make(map[string]model.Company)
	for _, company := range companies {
		for _, id := range company.Identifiers() {
			if _, ok := index[id]; !ok {
				index[id] = company
			}
		}
	}
	return index
}

func mergeContact(contact model.Contact, opts Options, domainMap map[string]string, nameMap map[string]model.NameParts, companyIndex map[string]model.Company) model.Contact {
	if opts.FindDomains && contact.FilteredCompany != "" {
		if domain, ok := domainMap[contact.FilteredCompany]; ok {
			contact.CompanyDomain = domain
		}
	}

	if opts.SplitNames && contact.PersonName != "" {
		if parts, ok := nameMap[contact.PersonName]; ok {
			contact.FirstName = parts.First()
			contact.LastName = parts.Last()
			contact.Title = parts.Title()
		}
	}

	if len(companyIndex) > 0 {
		candidates := []string{
			contact.CompanyName,
			contact.FilteredCompany,
			contact.OrbisName,
			model.BareHost(contact.CompanyDomain),
		}
		for _, candidate := range candidates {
			if candidate == "" {
				continue
			}
			company, ok := companyIndex[strings.ToLower(candidate)]
			if !ok {
				continue
			}
			contact.CompanyIndustry = company.Industry
			contact.CompanySize = company.Size
			contact.CompanyDescription = company.Description
			contact.CompanyLocation = company.Location
			contact.CompanyWebsite = company.Website
			contact.CompanyFoundedYear = company.FoundedYear
			contact.CompanyType = company.CompanyType
			contact.CompanyLogoURL = company.LogoURL
			break
		}
	}
	return contact
}
