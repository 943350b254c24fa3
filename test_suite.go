package crudboot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// DBSeeder inserts rows, given as column/value maps, into a table.
type DBSeeder interface {
	Seed(table string, rows []map[string]string) error
}

type TestSuite struct {
	T           *testing.T
	Router      *gin.Engine
	Server      *Server
	Resp        *http.Response
	RespBody    []byte
	Storage     map[string]string
	RequestBody []byte
	BaseURL     string
	DbSeeders   map[string]DBSeeder
	// Reset runs before every scenario, typically to truncate tables.
	Reset func() error
}

type TestLogger struct {
	T *testing.T
}

func NewTestSuite(t *testing.T, router *gin.Engine) *TestSuite {
	return &TestSuite{
		T:         t,
		Router:    router,
		Storage:   make(map[string]string),
		DbSeeders: make(map[string]DBSeeder),
	}
}

func (ts *TestSuite) RegisterDBSeeder(table string, seeder DBSeeder) {
	ts.DbSeeders[table] = seeder
}

func (ts *TestSuite) SetBaseURL(baseURL string) {
	ts.BaseURL = baseURL
}

func (ts *TestSuite) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		if ts.Storage == nil {
			ts.Storage = make(map[string]string)
		}
	})
}

func (ts *TestSuite) InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.BeforeScenario(func(sc *godog.Scenario) {
		ts.Resp = nil
		ts.RespBody = nil
		ts.RequestBody = nil
		if ts.Reset != nil {
			if err := ts.Reset(); err != nil {
				ts.T.Errorf("reset before %q: %v", sc.Name, err)
			}
		}
	})

	ctx.Step(`^table "([^"]*)" has the following rows$`, ts.tableHasTheFollowingRows)
	ctx.Step(`^table "([^"]*)" has (\d+) rows like$`, ts.tableHasRowsLike)
	ctx.Step(`^I am authenticated as "([^"]*)" with role "([^"]*)"$`, ts.iAmAuthenticatedAs)
	ctx.Step(`^I send a GET request to "([^"]*)"$`, ts.iSendAGETRequestTo)
	ctx.Step(`^I send a POST request to "([^"]*)" with body$`, ts.iSendAPOSTRequestToWithBody)
	ctx.Step(`^I send an authenticated (POST|PUT) request to "([^"]*)" with body$`, ts.iSendAnAuthenticatedRequestWithBody)
	ctx.Step(`^I send an authenticated (GET|DELETE) request to "([^"]*)"$`, ts.iSendAnAuthenticatedRequestTo)
	ctx.Step(`^the response status should be (\d+)$`, ts.theResponseStatusShouldBe)
	ctx.Step(`^the response "([^"]*)" field is stored as "([^"]*)"$`, ts.theResponseFieldIsStoredAs)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, ts.theResponseHeaderShouldBe)
	ctx.Step(`^the response should contain an item with$`, ts.theResponseShouldContainAnItemWith)
	ctx.Step(`^the response field "([^"]*)" should be (\d+)$`, ts.theResponseFieldShouldBe)
	ctx.Step(`^the response list "([^"]*)" should have (\d+) items$`, ts.theResponseListShouldHaveItems)
	ctx.Step(`^item (\d+) of the response list "([^"]*)" should contain$`, ts.itemOfTheResponseListShouldContain)
}

func (ts *TestSuite) tableHasTheFollowingRows(table string, data *godog.Table) error {
	seeder, ok := ts.DbSeeders[table]
	if !ok {
		return fmt.Errorf("no seeder registered for table %s", table)
	}
	rows, err := tableRows(data)
	if err != nil {
		return err
	}
	return seeder.Seed(table, rows)
}

var rowNumberPattern = regexp.MustCompile(`\{n(?::(\d+))?\}`)

// tableHasRowsLike seeds count rows from a one-row template. "{n}" is replaced
// by the 1-based row number, "{n:2}" by the number padded to two digits.
func (ts *TestSuite) tableHasRowsLike(table string, count int, data *godog.Table) error {
	seeder, ok := ts.DbSeeders[table]
	if !ok {
		return fmt.Errorf("no seeder registered for table %s", table)
	}
	template, err := tableRows(data)
	if err != nil {
		return err
	}

	rows := make([]map[string]string, 0, count)
	for n := 1; n <= count; n++ {
		row := make(map[string]string, len(template[0]))
		for column, value := range template[0] {
			row[column] = rowNumberPattern.ReplaceAllStringFunc(value, func(m string) string {
				width := rowNumberPattern.FindStringSubmatch(m)[1]
				if width == "" {
					return strconv.Itoa(n)
				}
				return fmt.Sprintf("%0"+width+"d", n)
			})
		}
		rows = append(rows, row)
	}
	return seeder.Seed(table, rows)
}

func (ts *TestSuite) iAmAuthenticatedAs(userID, role string) error {
	accessToken, _, err := GenerateTokens(userID, role)
	if err != nil {
		return err
	}
	ts.Storage["authToken"] = accessToken
	return nil
}

func (ts *TestSuite) iSendAGETRequestTo(path string) error {
	return ts.send(http.MethodGet, path, nil, false)
}

func (ts *TestSuite) iSendAPOSTRequestToWithBody(path string, body *godog.Table) error {
	var err error
	ts.RequestBody, err = parseDataTableToJSON(body)
	if err != nil {
		return err
	}
	return ts.send(http.MethodPost, path, ts.RequestBody, false)
}

func (ts *TestSuite) iSendAnAuthenticatedRequestWithBody(method, path string, body *godog.Table) error {
	var err error
	ts.RequestBody, err = parseDataTableToJSON(body)
	if err != nil {
		return err
	}
	return ts.send(method, path, ts.RequestBody, true)
}

func (ts *TestSuite) iSendAnAuthenticatedRequestTo(method, path string) error {
	return ts.send(method, path, nil, true)
}

func (ts *TestSuite) send(method, path string, body []byte, authenticated bool) error {
	url := ts.BaseURL + ts.expand(path)
	if body != nil {
		body = []byte(ts.expand(string(body)))
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+ts.Storage["authToken"])
	}

	if ts.BaseURL != "" {
		ts.Resp, err = http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
	} else {
		w := httptest.NewRecorder()
		ts.Router.ServeHTTP(w, req)
		ts.Resp = w.Result()
	}
	defer ts.Resp.Body.Close()
	ts.RespBody, err = io.ReadAll(ts.Resp.Body)
	return err
}

// expand replaces {key} in s with stored values.
func (ts *TestSuite) expand(s string) string {
	for key, value := range ts.Storage {
		s = strings.ReplaceAll(s, "{"+key+"}", value)
	}
	return s
}

func (ts *TestSuite) theResponseStatusShouldBe(status int) error {
	if !assert.Equal(ts.T, status, ts.Resp.StatusCode) {
		return fmt.Errorf("expected status %d, got %d: %s", status, ts.Resp.StatusCode, ts.RespBody)
	}
	return nil
}

func (ts *TestSuite) theResponseHeaderShouldBe(name, value string) error {
	if actual := ts.Resp.Header.Get(name); actual != value {
		return fmt.Errorf("expected header %s to be %q, got %q", name, value, actual)
	}
	return nil
}

func (ts *TestSuite) theResponseFieldIsStoredAs(field, key string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &data); err != nil {
		return err
	}
	val, ok := data[field]
	if !ok {
		return fmt.Errorf("field %s not found in response", field)
	}
	ts.Storage[key] = fmt.Sprintf("%v", val)
	return nil
}

func (ts *TestSuite) theResponseShouldContainAnItemWith(body *godog.Table) error {
	var actual map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &actual); err != nil {
		return err
	}
	return ts.containsAll(actual, body)
}

func (ts *TestSuite) theResponseFieldShouldBe(field string, expected int) error {
	var data map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &data); err != nil {
		return err
	}
	actual, ok := data[field].(float64)
	if !ok {
		return fmt.Errorf("field %s is not a number in %s", field, ts.RespBody)
	}
	if !assert.Equal(ts.T, float64(expected), actual) {
		return fmt.Errorf("expected %s to be %d, got %v", field, expected, actual)
	}
	return nil
}

func (ts *TestSuite) theResponseListShouldHaveItems(field string, expected int) error {
	items, err := ts.responseList(field)
	if err != nil {
		return err
	}
	if !assert.Len(ts.T, items, expected) {
		return fmt.Errorf("expected %d items in %s, got %d", expected, field, len(items))
	}
	return nil
}

func (ts *TestSuite) itemOfTheResponseListShouldContain(index int, field string, body *godog.Table) error {
	items, err := ts.responseList(field)
	if err != nil {
		return err
	}
	if index < 1 || index > len(items) {
		return fmt.Errorf("item %d out of range, %s has %d items", index, field, len(items))
	}
	item, ok := items[index-1].(map[string]interface{})
	if !ok {
		return fmt.Errorf("item %d of %s is not an object", index, field)
	}
	return ts.containsAll(item, body)
}

// responseList returns the array in field, or the response itself when
// field is "." .
func (ts *TestSuite) responseList(field string) ([]interface{}, error) {
	if field == "." {
		var items []interface{}
		return items, json.Unmarshal(ts.RespBody, &items)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(ts.RespBody, &data); err != nil {
		return nil, err
	}
	items, ok := data[field].([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %s is not a list in %s", field, ts.RespBody)
	}
	return items, nil
}

// containsAll compares the expected cells as strings against the JSON values
// of actual.
func (ts *TestSuite) containsAll(actual map[string]interface{}, body *godog.Table) error {
	rows, err := tableRows(body)
	if err != nil {
		return err
	}
	for key, expected := range rows[0] {
		value, ok := actual[key]
		if !ok {
			return fmt.Errorf("field %s not found in response", key)
		}
		if got := fmt.Sprintf("%v", value); !assert.Equal(ts.T, ts.expand(expected), got) {
			return fmt.Errorf("field %s: expected %q, got %q", key, expected, got)
		}
	}
	return nil
}

func tableRows(data *godog.Table) ([]map[string]string, error) {
	if len(data.Rows) < 2 {
		return nil, fmt.Errorf("table must have at least two rows")
	}
	headers := data.Rows[0].Cells
	rows := make([]map[string]string, 0, len(data.Rows)-1)
	for i := 1; i < len(data.Rows); i++ {
		row := make(map[string]string, len(headers))
		for j, cell := range data.Rows[i].Cells {
			row[headers[j].Value] = cell.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseDataTableToJSON(body *godog.Table) ([]byte, error) {
	rows, err := tableRows(body)
	if err != nil {
		return nil, err
	}
	data := make(map[string]interface{}, len(rows[0]))
	for key, value := range rows[0] {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			data[key] = n
			continue
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			data[key] = f
			continue
		}
		data[key] = value
	}
	return json.Marshal(data)
}

// GormSeeder creates rows through gorm. Columns are matched against the
// model's Go field names, column names and json tags.
type GormSeeder struct {
	Constructors map[string]func() interface{}
	DB           *gorm.DB
}

func NewGormSeeder(db *gorm.DB) *GormSeeder {
	return &GormSeeder{
		Constructors: make(map[string]func() interface{}),
		DB:           db,
	}
}

func (s *GormSeeder) Register(table string, constructor func() interface{}) {
	s.Constructors[table] = constructor
}

func (s *GormSeeder) Seed(table string, rows []map[string]string) error {
	constructor, ok := s.Constructors[table]
	if !ok {
		return fmt.Errorf("no constructor registered for table: %s", table)
	}

	for _, row := range rows {
		record := constructor()
		stmt := &gorm.Statement{DB: s.DB}
		if err := stmt.Parse(record); err != nil {
			return err
		}
		val := reflect.ValueOf(record).Elem()
		for column, cell := range row {
			field := seedField(stmt.Schema, column)
			if field == nil {
				return fmt.Errorf("could not set field %s for table %s", column, table)
			}
			if err := setCell(val.FieldByIndex(field.StructField.Index), cell); err != nil {
				return fmt.Errorf("failed to set %s for table %s: %w", column, table, err)
			}
		}
		if err := s.DB.Create(record).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedField(sch *schema.Schema, column string) *schema.Field {
	if f := lookUpField(sch, column); f != nil {
		return f
	}
	for _, f := range sch.Fields {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == column {
			return f
		}
	}
	return nil
}

func setCell(field reflect.Value, cell string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}
	if cell == "" {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(cell)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(cell, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(cell)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Pointer:
		ptr := reflect.New(field.Type().Elem())
		if err := setCell(ptr.Elem(), cell); err != nil {
			return err
		}
		field.Set(ptr)
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

func (tl *TestLogger) Write(p []byte) (n int, err error) {
	if tl.T != nil {
		tl.T.Logf("%s", p)
	}
	return len(p), nil
}

// TestFeatures runs the feature files under ./features against suite.
func TestFeatures(t *testing.T, name string, suite *TestSuite) int {
	suite.T = t
	opts := godog.Options{
		Format:    "pretty",
		Output:    colors.Colored(&TestLogger{T: t}),
		Paths:     []string{"features"},
		Strict:    true,
		Randomize: 0,
	}

	return godog.TestSuite{
		Name:                 name,
		TestSuiteInitializer: suite.InitializeTestSuite,
		ScenarioInitializer:  suite.InitializeScenario,
		Options:              &opts,
	}.Run()
}
