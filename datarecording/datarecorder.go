// Package datarecording stores simulation results in SQLite databases.
// Tracers and reporting tools declare one table per record type, insert Go
// structs, and leave batching and flushing to the recorder.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a new table, using the fields of the sample entry
	// as columns.
	CreateTable(tableName string, sampleEntry any)

	// InsertData writes a same-type entry into a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns a slice containing the names of all tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()
}

// New creates a DataRecorder backed by a new SQLite database file. An empty
// path derives a unique filename.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder on an already-open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into a SQLite database.
type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func (w *sqliteWriter) init() {
	if w.dbName == "" {
		w.dbName = "exesim_data_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	w.DB = db
}

// isAllowedType reports whether a field kind maps onto a SQLite column.
// Nested structs, slices, and pointers do not.
func (w *sqliteWriter) isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (w *sqliteWriter) structFieldsMustBeRecordable(entry any) {
	structType := reflect.TypeOf(entry)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !w.isAllowedType(field.Type.Kind()) {
			panic(fmt.Sprintf("field %s cannot be recorded", field.Name))
		}
	}
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	w.structFieldsMustBeRecordable(sampleEntry)

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	w.mustExecute(createTableSQL)

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		entries:    []any{},
	}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(w.tables))
	for t := range w.tables {
		tables = append(tables, t)
	}

	return tables
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")
	defer w.mustExecute("COMMIT TRANSACTION")

	for tableName, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		statement := w.prepareStatement(tableName, t.entries[0])

		for _, entry := range t.entries {
			values := []any{}

			entryValue := reflect.ValueOf(entry)
			for i := 0; i < entryValue.NumField(); i++ {
				values = append(values, entryValue.Field(i).Interface())
			}

			_, err := statement.Exec(values...)
			if err != nil {
				panic(err)
			}
		}

		t.entries = nil
		statement.Close()
	}

	w.entryCount = 0
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %s: %w", query, err))
	}

	return res
}

func (w *sqliteWriter) prepareStatement(
	tableName string,
	sampleEntry any,
) *sql.Stmt {
	placeholders := structs.Names(sampleEntry)
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	statement, err := w.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return statement
}
