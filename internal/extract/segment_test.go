package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBeneficiaries(t *testing.T) {
	text := `Section A: Community Interest Statement
The company's activities will provide benefit to...
young people and families in the Greater Manchester area
who are experiencing housing difficulties.
Section B: Community Interest Statement - Activities & Related Benefit`

	got := Beneficiaries(text)
	assert.Equal(t, "young people and families in the Greater Manchester area who are experiencing housing difficulties.", got)
}

func TestBeneficiariesStripsPageFurniture(t *testing.T) {
	text := `The company's activities will provide benefit to
residents of rural Devon Page 3 of 12`

	got := Beneficiaries(text)
	assert.Equal(t, "residents of rural Devon", got)
}

func TestBeneficiariesAbsent(t *testing.T) {
	assert.Equal(t, "", Beneficiaries("Proposed officers of the company"))
}

func TestSurplusUse(t *testing.T) {
	text := `If the company makes any surplus it will be used for:
reinvestment into community projects and facility maintenance
Section C: Signatories`

	got := SurplusUse(text)
	assert.Equal(t, "reinvestment into community projects and facility maintenance", got)
}

func TestSurplusUseBoilerplateRemoved(t *testing.T) {
	text := `Any surplus will be reinvested:
into the company's charitable aims (Please continue on separate sheet if necessary)
SIGNATORIES`

	got := SurplusUse(text)
	assert.Equal(t, "into the company's charitable aims", got)
}

func TestCompanyDiffers(t *testing.T) {
	text := `Our company differs from a general commercial company because
all profits are locked into serving the local community
If the company makes any surplus it will be used for further projects`

	got := CompanyDiffers(text)
	assert.Equal(t, "all profits are locked into serving the local community", got)
}

func TestActivitiesFromTextWithBenefitMarkers(t *testing.T) {
	text := `We will run a community cafe and training kitchen offering
catering qualifications to long-term unemployed residents.
The community will benefit by gaining access to affordable
meals and accredited training placements.`

	acts := activitiesFromText(text)
	if assert.Len(t, acts, 1) {
		assert.Contains(t, acts[0].Activity, "community cafe")
		assert.Contains(t, acts[0].Description, "affordable meals")
	}
}

func TestActivitiesFromTextSingleBlock(t *testing.T) {
	text := `We will operate a minibus service for elderly and disabled
residents of the village, providing transport to medical
appointments, shops and social events throughout the week.`

	acts := activitiesFromText(text)
	if assert.Len(t, acts, 1) {
		assert.Contains(t, acts[0].Activity, "minibus service")
		assert.Equal(t, "", acts[0].Description)
	}
}

func TestActivitiesFromTextTooShort(t *testing.T) {
	assert.Empty(t, activitiesFromText("tiny fragment"))
}

func TestActivitiesFromTextDropsPlaceholderPair(t *testing.T) {
	text := `Enter text here and describe each of the proposed activities in turn.
The community will benefit by enter text here`

	assert.Empty(t, activitiesFromText(text))
}

func TestStripSectionBoilerplate(t *testing.T) {
	text := `SECTION B: COMPANY ACTIVITIES
Activities How each activity benefits the community
Running a youth football club for the estate`

	got := stripSectionBoilerplate(text)
	assert.NotContains(t, got, "COMPANY ACTIVITIES")
	assert.NotContains(t, got, "How each activity benefits")
	assert.Contains(t, got, "youth football club")
}

func TestIsHeaderOrInstruction(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"Activities", true},
		{"How will the activity benefit the community", true},
		{"Please describe the company's activities", true},
		{"Page 3 of 12", true},
		{"12345678", true},
		{"We will run weekly lunch clubs for isolated older people", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isHeaderOrInstruction(tt.text), "text: %q", tt.text)
	}
}

func TestDedupeActivities(t *testing.T) {
	acts := []Activity{
		{Activity: "Run a cafe", Description: "Affordable meals"},
		{Activity: "RUN A CAFE", Description: "affordable meals"},
		{Activity: "", Description: ""},
		{Activity: "Operate a minibus", Description: "Transport access"},
	}

	got := dedupeActivities(acts)
	assert.Len(t, got, 2)
	assert.Equal(t, "Run a cafe", got[0].Activity)
	assert.Equal(t, "Operate a minibus", got[1].Activity)
}

func TestCleanCellText(t *testing.T) {
	assert.Equal(t, "hello world", cleanCellText("  hello \n\n world *** "))
	assert.Equal(t, "", cleanCellText("   "))
}
