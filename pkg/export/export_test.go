package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

func load(t *testing.T, content string) *model.Table {
	t.Helper()
	c, err := cleaner.NewDataCleaner(zap.NewNop(), cleaner.DefaultRepairPolicy())
	require.NoError(t, err)
	result, err := c.Load("test.csv", []byte(content))
	require.NoError(t, err)
	return result.Table
}

func TestString(t *testing.T) {
	table := load(t, `ResourceID,Service,Department,Project,Owner,MonthlyCostUSD,Tagged
r1,EC2,,,,"100.00",No
r2,S3,Eng,Apollo,jdoe,"50.50",Yes
`)

	want := "ResourceID,Service,Department,Project,Owner,MonthlyCostUSD,Tagged\n" +
		"r1,EC2,,,,100,No\n" +
		"r2,S3,Eng,Apollo,jdoe,50.5,Yes\n"
	assert.Equal(t, want, String(table))
}

func TestString_FilteredView(t *testing.T) {
	table := load(t, "ResourceID,Service,MonthlyCostUSD,Tagged\nr1,EC2,1,No\nr2,S3,2,Yes\nr3,RDS,,No\n")

	got := String(filter.Apply(table, filter.Untagged()))
	assert.Equal(t, "ResourceID,Service,MonthlyCostUSD,Tagged\nr1,EC2,1,No\nr3,RDS,,No\n", got)

	empty := String(filter.Apply(table, filter.Predicates{Service: "Lambda"}))
	assert.Equal(t, "ResourceID,Service,MonthlyCostUSD,Tagged\n", empty)
}

func TestRoundTrip(t *testing.T) {
	content := "AccountID,ResourceID,Service,Region,Department,Project,Environment,Owner,CostCenter,CreatedBy,MonthlyCostUSD,Tagged\n" +
		"\"1,r1,EC2,us-east-1,Eng,Apollo,prod,jdoe,CC1,terraform,10.25,Yes\"\n" +
		"1,r2,S3,us-east-1,console,n/a,No\n" +
		"1,r3,RDS,eu-west-1,Finance,,dev,,,terraform,0.1,No\n"
	original := load(t, content)

	exported := String(original)
	reloaded := load(t, exported)

	assert.True(t, original.Equal(reloaded), "reloaded table differs:\n%s", exported)
	assert.Equal(t, exported, String(reloaded))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWrite_PropagatesWriterErrors(t *testing.T) {
	table := load(t, "ResourceID,Service,MonthlyCostUSD,Tagged\nr1,EC2,1,No\n")

	err := Write(failingWriter{}, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
