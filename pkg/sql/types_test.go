package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestClassifySQLType(t *testing.T) {
	tests := []struct {
		rawType  string
		expected models.TypeInfo
	}{
		{"INT", models.TypeInfo{Category: models.CategoryInteger}},
		{"bigint", models.TypeInfo{Category: models.CategoryInteger}},
		{"TinyInt", models.TypeInfo{Category: models.CategoryInteger}},

		{"DECIMAL(10,2)", models.TypeInfo{Category: models.CategoryDecimal, Precision: intPtr(10), Scale: intPtr(2)}},
		{"decimal(10, 2)", models.TypeInfo{Category: models.CategoryDecimal, Precision: intPtr(10), Scale: intPtr(2)}},
		{"NUMERIC(18)", models.TypeInfo{Category: models.CategoryDecimal, Precision: intPtr(18)}},
		{"MONEY", models.TypeInfo{Category: models.CategoryDecimal}},
		{"FLOAT", models.TypeInfo{Category: models.CategoryDecimal}},
		{"DECIMAL(-5,2)", models.TypeInfo{Category: models.CategoryDecimal, Scale: intPtr(2)}},

		{"DATE", models.TypeInfo{Category: models.CategoryTemporal}},
		{"DATETIME2(7)", models.TypeInfo{Category: models.CategoryTemporal}},
		{"datetimeoffset", models.TypeInfo{Category: models.CategoryTemporal}},
		{"TIME", models.TypeInfo{Category: models.CategoryTemporal}},

		{"BIT", models.TypeInfo{Category: models.CategoryBoolean}},

		{"NVARCHAR(50)", models.TypeInfo{Category: models.CategoryText, MaxLength: intPtr(50)}},
		{"varchar(max)", models.TypeInfo{Category: models.CategoryText, MaxLength: intPtr(models.UnboundedLength)}},
		{"NVARCHAR(-1)", models.TypeInfo{Category: models.CategoryText, MaxLength: intPtr(models.UnboundedLength)}},
		{"CHAR", models.TypeInfo{Category: models.CategoryText}},
		{"NVARCHAR(99999999999999999999)", models.TypeInfo{Category: models.CategoryText}},

		{"UNIQUEIDENTIFIER", models.TypeInfo{Category: models.CategoryText}},
		{"XML", models.TypeInfo{Category: models.CategoryText}},
		{"", models.TypeInfo{Category: models.CategoryText}},
		{"((", models.TypeInfo{Category: models.CategoryText}},
	}

	for _, tt := range tests {
		t.Run(tt.rawType, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySQLType(tt.rawType))
		})
	}
}
