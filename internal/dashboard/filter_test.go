package dashboard

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

func TestBuildCriteria(t *testing.T) {
	tests := []struct {
		name     string
		controls FilterControls
		want     FilterCriteria
	}{
		{
			name:     "defaults still carry the score range",
			controls: DefaultControls(),
			want:     FilterCriteria{KeyMinScore: "0", KeyMaxScore: "300"},
		},
		{
			name: "every control set",
			controls: FilterControls{
				Department: "Ministry 1",
				Grade:      "A급 직접관련",
				Type:       "SOC",
				Region:     "North",
				Search:     "bridge",
				MinScore:   120,
				MaxScore:   250,
			},
			want: FilterCriteria{
				KeyDepartment: "Ministry 1",
				KeyGrade:      "A급 직접관련",
				KeyType:       "SOC",
				KeyRegion:     "North",
				KeySearch:     "bridge",
				KeyMinScore:   "120",
				KeyMaxScore:   "250",
			},
		},
		{
			name:     "empty search is omitted",
			controls: FilterControls{Grade: "B급 간접관련", Search: "", MaxScore: 300},
			want:     FilterCriteria{KeyGrade: "B급 간접관련", KeyMinScore: "0", KeyMaxScore: "300"},
		},
		{
			name:     "search text is sent as typed",
			controls: FilterControls{Search: "  도로 ", MaxScore: 300},
			want:     FilterCriteria{KeySearch: "  도로 ", KeyMinScore: "0", KeyMaxScore: "300"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildCriteria(tt.controls)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildCriteria() mismatch (-want +got):\n%s", diff)
			}
			for k, v := range got {
				require.NotEmpty(t, v, "key %s stored with an empty value", k)
			}
		})
	}
}

func TestFilterCriteriaClone(t *testing.T) {
	orig := FilterCriteria{KeyGrade: "A급 직접관련"}
	clone := orig.Clone()
	clone[KeyRegion] = "North"

	require.NotContains(t, orig, KeyRegion)
	require.NotNil(t, FilterCriteria(nil).Clone())
	require.Equal(t, []string{KeyGrade, KeyRegion}, clone.Keys())
}

func TestReconcileControls(t *testing.T) {
	opts := backend.FilterOptions{
		Departments: []string{"Ministry 0", "Ministry 1"},
		Grades:      []string{"A급 직접관련"},
		Types:       []string{"SOC"},
		Regions:     []string{"North"},
	}
	fc := FilterControls{
		Department: "Ministry 1",
		Grade:      "C급 정책참고",
		Type:       "SOC",
		Region:     "East",
		Search:     "kept",
		MinScore:   10,
		MaxScore:   20,
	}

	got := reconcileControls(fc, opts)
	require.Equal(t, FilterControls{
		Department: "Ministry 1",
		Type:       "SOC",
		Search:     "kept",
		MinScore:   10,
		MaxScore:   20,
	}, got)
}
