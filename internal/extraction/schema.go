package extraction

import (
	"fmt"
	"sort"
)

// SchemaType identifies one of the supported extraction schemas.
type SchemaType string

const (
	// SchemaNetwork captures professional network contacts.
	SchemaNetwork SchemaType = "network"
	// SchemaDealFlow captures companies in the deal pipeline.
	SchemaDealFlow SchemaType = "deal_flow"
	// SchemaLPMainDashboard captures limited-partner fundraising contacts.
	SchemaLPMainDashboard SchemaType = "lp_main_dashboard"
	// SchemaVCFund captures co-investor fund profiles.
	SchemaVCFund SchemaType = "vc_fund"
)

// FieldKind describes the value shape of a schema field. All fields are
// nullable.
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindInteger    FieldKind = "integer"
	KindEnum       FieldKind = "enum"
	KindEnumList   FieldKind = "enum_list"
	KindStringList FieldKind = "string_list"
)

// Field is one extractable field. Alias is the board-facing column
// title and the key used in extracted records.
type Field struct {
	Alias       string    `json:"alias"`
	Description string    `json:"description,omitempty"`
	Kind        FieldKind `json:"type"`
	Enum        []string  `json:"enum,omitempty"`
}

// Schema is an ordered set of fields for one record type.
type Schema struct {
	Type        SchemaType `json:"schema_type"`
	DisplayName string     `json:"display_name"`
	Fields      []Field    `json:"fields"`
}

// FieldByAlias returns the schema field with the given alias.
func (s *Schema) FieldByAlias(alias string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Alias == alias {
			return f, true
		}
	}
	return Field{}, false
}

// usStates are the accepted values for "State" fields. The non-state
// entries at the end match historical board data.
var usStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming", "Washington D.C.",
	"Israel", "Canada",
}

var schemas = map[SchemaType]*Schema{
	SchemaNetwork: {
		Type:        SchemaNetwork,
		DisplayName: "Network",
		Fields: []Field{
			{Alias: "Name", Kind: KindString, Description: "Full name of the contact"},
			{Alias: "LinkedIn", Kind: KindString, Description: "Public LinkedIn profile URL for the contact (full URL; leave null if unknown)"},
			{Alias: "Email", Kind: KindString, Description: "Primary email address for the contact (leave null if unknown)"},
			{Alias: "Phone", Kind: KindString, Description: "Primary phone number for the contact; include country code if non-US (leave null if unknown)"},
			{Alias: "Company", Kind: KindString, Description: "Current employer or organization associated with the contact"},
			{Alias: "Title", Kind: KindString, Description: "Current role/title at the listed company (e.g., Partner, Senior Engineer); include company if part of title (e.g., 'Founder at XYZ')"},
			{Alias: "Status", Kind: KindString, Description: "Current status of engagement with the contact; leave null for now"},
			{Alias: "Country", Kind: KindEnum, Description: "Country of residence or primary work location for the contact",
				Enum: []string{"United States", "Canada", "United Kingdom", "Israel", "Israel/United States", "Israel/United Kingdom"}},
			{Alias: "State", Kind: KindEnum, Description: "U.S. state for the contact's location; leave null for non-US", Enum: usStates},
			{Alias: "City", Kind: KindString, Description: "City for the contact's location (leave null if unknown)"},
			{Alias: "Investor Type", Kind: KindEnum, Description: "Category of investor; leave null if not an investor or not explicitly stated",
				Enum: []string{"Advisor", "Enterprise", "Family Office", "Individual", "Institutional", "Law Firm"}},
			{Alias: "Notes", Kind: KindString, Description: "Concise, high-signal notes or action items; avoid speculation and unnecessary detail"},
			{Alias: "Date", Kind: KindString, Description: "Date this contact was added or first captured (ISO 8601 preferred; leave null if unsure)"},
			{Alias: "Date (Last Met)", Kind: KindString, Description: "Most recent date you met in person or virtually (ISO 8601; leave null if unsure)"},
			{Alias: "Date (Last Contact)", Kind: KindString, Description: "Most recent date of any interaction (email, call, meeting) (ISO 8601; leave null if none)"},
		},
	},
	SchemaDealFlow: {
		Type:        SchemaDealFlow,
		DisplayName: "Deal Flow",
		Fields: []Field{
			{Alias: "Company name", Kind: KindString, Description: "Full legal name of the company being evaluated"},
			{Alias: "CEO/ Primary Contact", Kind: KindString, Description: "Name of the CEO or primary point of contact at the company"},
			{Alias: "Email", Kind: KindString, Description: "Email address for the main company contact"},
			{Alias: "Date Sourced", Kind: KindString, Description: "The date when this deal was first sourced or added to the pipeline"},
			{Alias: "Revenue Run Rate", Kind: KindInteger, Description: "Provide the full integer amount for the company's annualized revenue run rate. Do not abbreviate (e.g., use 5000 not 5k)."},
			{Alias: "Financing Round", Kind: KindEnum, Description: "Current financing stage of the company",
				Enum: []string{"Pre Seed", "Seed", "Series A", "Series B", "Series C", "Post Seed", "Bridge"}},
			{Alias: "Evaluation", Kind: KindEnum, Description: "Current internal evaluation status of the deal (e.g., Due Diligence, Pass, Funded)",
				Enum: []string{"Pass", "Closed", "Company passed", "Did not close", "Due Diligence", "Evaluating", "Legal Docs", "Out of Business", "Term Sheet", "Waiting for Info", "Funded"}},
			{Alias: "State", Kind: KindEnum, Description: "U.S. state where the company's headquarters is located; leave null if outside the U.S.", Enum: usStates},
			{Alias: "City", Kind: KindString, Description: "City where the company's headquarters is located"},
			{Alias: "Referral Source", Kind: KindEnumList, Description: "The channel or person type that referred this deal (e.g., Angel Investor, VC Fund, Network)",
				Enum: []string{"Angel Investor", "Broker", "Debt Fund", "Inbound", "Investment Banker", "LP", "Network", "Outbound", "VC Fund", "Paz Pina"}},
			{Alias: "Name of Referral", Kind: KindString, Description: "Name of the specific individual or entity who referred the company"},
			{Alias: "Sourced By", Kind: KindStringList, Description: "Internal team member who sourced this deal"},
			{Alias: "DEI", Kind: KindEnum, Description: "Indicate if the company explicitly has diversity, equity, and inclusion (DEI) attributes; leave null if unspecified",
				Enum: []string{"Yes", "No"}},
			{Alias: "Equity/ Debt", Kind: KindString, Description: "Specify whether the opportunity is equity-based, debt-based, or a mix"},
			{Alias: "Notes", Kind: KindString, Description: "Summarize key insights, red flags, or important context about the deal; keep concise and relevant"},
			{Alias: "Files", Kind: KindString, Description: "Leave this null for now"},
		},
	},
	SchemaLPMainDashboard: {
		Type:        SchemaLPMainDashboard,
		DisplayName: "LP Main Dashboard",
		Fields: []Field{
			{Alias: "Name", Kind: KindString, Description: "Full name of LP (Limited Partner) contact"},
			{Alias: "Amount $", Kind: KindString, Description: "Provide the full integer amount DO NOT SHORTEN, e.g., 5000 for $5000 rather than 5 or 5k"},
			{Alias: "Email", Kind: KindString, Description: "Email address of the LP contact"},
			{Alias: "Notes", Kind: KindString, Description: "Summarize any key points or action items; be conservative in what you include here, only the most important details"},
			{Alias: "Status", Kind: KindString, Description: "Leave this null for now"},
			{Alias: "Fund", Kind: KindEnum, Description: "The fund the LP is investing or interested in. Lioncrest is the VC fund, Prospeq is the private credit fund, and All means both.",
				Enum: []string{"Lioncrest", "Prospeq", "All"}},
			{Alias: "Sent Email?", Kind: KindEnum, Description: "Status of the conversation within the email thread. If there is any doubt, leave this null.",
				Enum: []string{"Sent", "In Communication", "Stuck", "Need to Send"}},
			{Alias: "Follow Up date", Kind: KindString, Description: "Leave this null for now"},
			{Alias: "Upcoming Meeting", Kind: KindString, Description: "Only provide a specific date if an explicit upcoming meeting is mentioned, else null"},
			{Alias: "Last Reach Out", Kind: KindString, Description: "The date of the most recent outreach to this person"},
			{Alias: "Country", Kind: KindString, Description: "Country of the LP contact"},
			{Alias: "State", Kind: KindEnum, Description: "State of the LP contact; if a non-US contact, leave null", Enum: usStates},
			{Alias: "City", Kind: KindString, Description: "City of the LP contact"},
		},
	},
	SchemaVCFund: {
		Type:        SchemaVCFund,
		DisplayName: "VC Fund",
		Fields: []Field{
			{Alias: "Name", Kind: KindString, Description: "Fund or firm name (e.g., 'Sequoia Capital')"},
			{Alias: "Stage", Kind: KindString, Description: "Single string. If multiple apply, use a comma-separated list (no arrays). Allowed tokens: 'Pre-Seed', 'Seed', 'Seed+', 'Seed-', 'Series A', 'Series A+', 'Series A-', 'Series B', 'Series B+', 'Series B-', 'Series C+', 'Debt'. 'X+' means X or above; 'X-' means the earlier end of X. Do not combine an 'X+' token with later specific stages."},
			{Alias: "Date", Kind: KindString, Description: "Relevant date (ISO preferred: YYYY-MM-DD; otherwise 'Sep 2025' is acceptable)"},
			{Alias: "Name of Contact", Kind: KindString, Description: "Primary contact's full name at the fund"},
			{Alias: "Title", Kind: KindString, Description: "Contact's role at the fund"},
			{Alias: "Email", Kind: KindString, Description: "Work email for the contact (single address)"},
			{Alias: "Phone", Kind: KindString, Description: "Contact phone (international format if not US based and available)"},
			{Alias: "Country", Kind: KindString, Description: "Country where the fund/contact is based (e.g., 'United States'). For multi-country funds use a '/' separator (e.g., 'United States/Israel')."},
			{Alias: "State", Kind: KindEnum, Description: "US state/territory if applicable", Enum: usStates},
			{Alias: "Industry Focus", Kind: KindString, Description: "Single string, comma-separated verticals (e.g., 'Fintech, DevTools, Healthtech')"},
			{Alias: "Check Size", Kind: KindString, Description: "Typical investment check size; ranges OK. Use finance shorthand (e.g., '500k-1.5MM', '5MM-10MM'). Separate multiple tiers with '|'."},
			{Alias: "LinkedIn", Kind: KindString, Description: "LinkedIn URL for the fund (full URL; leave null if unknown)"},
			{Alias: "Notes", Kind: KindString, Description: "Short, high-signal context (thesis, intro path, timing) or important action items; keep concise and relevant"},
		},
	},
}

// GetSchema returns the schema for a given type.
func GetSchema(t SchemaType) (*Schema, error) {
	s, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("unsupported schema_type: %s", t)
	}
	return s, nil
}

// AllSchemas returns every registered schema, ordered by type for
// stable API responses.
func AllSchemas() []*Schema {
	result := make([]*Schema, 0, len(schemas))
	for _, s := range schemas {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}
