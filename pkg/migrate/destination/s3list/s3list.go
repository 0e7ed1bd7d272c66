// package s3list
//
// destination implementation that models each list as a key prefix inside
// an s3 bucket. A list is declared by a manifest.json object and every
// inserted batch becomes one csv object under items/.
package s3list

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gofrs/uuid"
	"github.com/spf13/afero"

	"github.com/baderkha/list-migrate/pkg/migrate/config/targetcfg"
	"github.com/baderkha/list-migrate/pkg/migrate/destination"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// ErrListExists : create was called for a list that is already there and
// skip_existing is off
type ErrListExists struct {
	List string
}

func (e *ErrListExists) Error() string {
	return fmt.Sprintf("list %s already exists in the target bucket", e.List)
}

type Destination struct {
	cfg          targetcfg.S3List
	skipExisting bool
	client       s3iface.S3API
	fs           afero.Fs

	mu      sync.Mutex
	columns map[string][]schema.DestinationColumn
}

var _ destination.Destination = (*Destination)(nil)

func New(cfg targetcfg.S3List, skipExisting bool) *Destination {
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	return NewWithClient(cfg, skipExisting, s3.New(session.Must(session.NewSession(awsCfg))), afero.NewOsFs())
}

// NewWithClient : constructor for tests and callers that already hold a
// client
func NewWithClient(cfg targetcfg.S3List, skipExisting bool, client s3iface.S3API, fs afero.Fs) *Destination {
	return &Destination{
		cfg:          cfg,
		skipExisting: skipExisting,
		client:       client,
		fs:           fs,
		columns:      make(map[string][]schema.DestinationColumn),
	}
}

// Authenticate : proves the configured credentials can see the bucket
func (d *Destination) Authenticate(ctx context.Context) error {
	_, err := d.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(d.cfg.Bucket),
	})
	if err != nil {
		return fmt.Errorf("S3_LIST : Could not access bucket %s due to : %w", d.cfg.Bucket, err)
	}
	return nil
}

func (d *Destination) Close() error {
	return nil
}

// CreateList : writes the list manifest, an already existing manifest is
// success when skip_existing is set
func (d *Destination) CreateList(ctx context.Context, name string, columns []schema.DestinationColumn) error {
	key := d.manifestKey(name)
	_, err := d.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		if d.skipExisting {
			d.rememberColumns(name, columns)
			return nil
		}
		return &ErrListExists{List: name}
	}
	if !isNotFound(err) {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"list":    name,
		"columns": columns,
	})
	if err != nil {
		return err
	}
	_, err = d.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("S3_LIST : Could not create list %s due to : %w", name, err)
	}
	d.rememberColumns(name, columns)
	return nil
}

// InsertItems : spools the batch to a csv file and uploads it as one
// object, the whole batch lands or none of it does
func (d *Destination) InsertItems(ctx context.Context, listName string, rows []schema.TransformedRow) error {
	if len(rows) == 0 {
		return nil
	}
	cols := d.columnOrder(listName, rows[0])

	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	spoolPath := path.Join("tmp", listName, uid.String()+".csv")
	if err := d.spoolCSV(spoolPath, cols, rows); err != nil {
		return err
	}
	defer d.fs.Remove(spoolPath)

	f, err := d.fs.Open(spoolPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := path.Join(d.listPrefix(listName), "items", uid.String()+".csv")
	_, err = d.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("S3_LIST : Could not insert items into %s due to : %w", listName, err)
	}
	return nil
}

func (d *Destination) spoolCSV(spoolPath string, cols []string, rows []schema.TransformedRow) error {
	if err := d.fs.MkdirAll(path.Dir(spoolPath), 0755); err != nil {
		return err
	}
	f, err := d.fs.Create(spoolPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (d *Destination) rememberColumns(list string, cols []schema.DestinationColumn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.columns[list] = cols
}

// columnOrder : the manifest order when the list was created through this
// instance, otherwise a stable sort of the row's keys
func (d *Destination) columnOrder(list string, row schema.TransformedRow) []string {
	d.mu.Lock()
	declared := d.columns[list]
	d.mu.Unlock()
	if len(declared) > 0 {
		names := make([]string, len(declared))
		for i, c := range declared {
			names[i] = c.Name
		}
		return names
	}
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (d *Destination) listPrefix(list string) string {
	if d.cfg.PrefixOverride != "" {
		return path.Join(d.cfg.PrefixOverride, list)
	}
	return path.Join("lists", list)
}

func (d *Destination) manifestKey(list string) string {
	return path.Join(d.listPrefix(list), "manifest.json")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "NotFound", s3.ErrCodeNoSuchKey, "404":
			return true
		}
	}
	return false
}
