package models

import (
	"math"
	"reflect"
)

// Row is a single scraped job posting. Columns vary by board, so a row is a
// loose map keyed by column name.
type Row map[string]any

// naType is the type of NA.
type naType struct{}

func (naType) String() string { return "<NA>" }

// MarshalJSON encodes NA as null so cached tables round-trip.
func (naType) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// NA marks a value a board could not provide.
var NA = naType{}

// Well-known column names.
const (
	ColID                  = "id"
	ColSite                = "site"
	ColJobURL              = "job_url"
	ColJobURLDirect        = "job_url_direct"
	ColTitle               = "title"
	ColCompany             = "company"
	ColLocation            = "location"
	ColDatePosted          = "date_posted"
	ColJobType             = "job_type"
	ColSalarySource        = "salary_source"
	ColInterval            = "interval"
	ColMinAmount           = "min_amount"
	ColMaxAmount           = "max_amount"
	ColCurrency            = "currency"
	ColIsRemote            = "is_remote"
	ColJobLevel            = "job_level"
	ColJobFunction         = "job_function"
	ColListingType         = "listing_type"
	ColEmails              = "emails"
	ColDescription         = "description"
	ColCompanyIndustry     = "company_industry"
	ColCompanyURL          = "company_url"
	ColCompanyLogo         = "company_logo"
	ColCompanyURLDirect    = "company_url_direct"
	ColCompanyAddresses    = "company_addresses"
	ColCompanyNumEmployees = "company_num_employees"
	ColCompanyRevenue      = "company_revenue"
	ColCompanyDescription  = "company_description"
	ColSkills              = "skills"
	ColExperienceRange     = "experience_range"
	ColCompanyRating       = "company_rating"
	ColCompanyReviewsCount = "company_reviews_count"
	ColVacancyCount        = "vacancy_count"
	ColWorkFromHomeType    = "work_from_home_type"
	ColRole                = "role"
	ColCity                = "city"
	ColCrawledDate         = "crawled_date"
	ColRawData             = "raw_data"
)

// Allowlist is the persisted schema of the jobs table, in column order.
// Anything else a board returns is archived into raw_data.
var Allowlist = []string{
	ColSite, ColJobURL, ColJobURLDirect, ColTitle, ColCompany, ColLocation,
	ColDatePosted, ColJobType, ColSalarySource, ColInterval, ColMinAmount,
	ColMaxAmount, ColCurrency, ColIsRemote, ColJobLevel, ColJobFunction,
	ColListingType, ColEmails, ColDescription, ColCompanyIndustry,
	ColCompanyURL, ColCompanyLogo, ColCompanyURLDirect, ColCompanyAddresses,
	ColCompanyNumEmployees, ColCompanyRevenue, ColCompanyDescription,
	ColSkills, ColExperienceRange, ColCompanyRating, ColCompanyReviewsCount,
	ColVacancyCount, ColWorkFromHomeType, ColRole, ColCity, ColCrawledDate,
}

// ConflictKey identifies an existing row during upsert.
var ConflictKey = []string{ColJobURL, ColCrawledDate}

// NestedColumns hold list or mapping values that are stored as JSON text.
var NestedColumns = []string{ColEmails, ColSkills, ColCompanyAddresses, ColDescription}

// PersistedColumns returns the allowlist followed by raw_data.
func PersistedColumns() []string {
	cols := make([]string, 0, len(Allowlist)+1)
	cols = append(cols, Allowlist...)
	return append(cols, ColRawData)
}

// IsAllowlisted reports whether column belongs to the persisted schema.
func IsAllowlisted(column string) bool {
	for _, c := range Allowlist {
		if c == column {
			return true
		}
	}
	return false
}

// IsMissing reports whether v is a missing value: nil, NA, a NaN float or a
// nil pointer, map, slice or interface.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case naType:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Job type values shared by the boards.
const (
	JobTypeFullTime   = "fulltime"
	JobTypePartTime   = "parttime"
	JobTypeContract   = "contract"
	JobTypeInternship = "internship"
	JobTypeTemporary  = "temporary"
)
