// Package sql extracts runnable parameters from T-SQL scripts.
//
// # Script Parameters
//
// A script declares its inputs with ordinary T-SQL variable declarations at the
// top of the file:
//
//	DECLARE @StartDate DATE = '2024-01-01'
//	DECLARE @Region NVARCHAR(50)
//	DECLARE @MinTotal DECIMAL(10, 2) = 0
//
// The declared type decides how a value is validated and bound:
//
//	INT, INTEGER, SMALLINT, TINYINT, BIGINT             integer
//	DECIMAL, NUMERIC, MONEY, SMALLMONEY, FLOAT, REAL    decimal (precision, scale)
//	DATE, DATETIME, DATETIME2, SMALLDATETIME,
//	DATETIMEOFFSET, TIME                                temporal
//	BIT                                                 boolean
//	NVARCHAR, VARCHAR, CHAR, NCHAR, TEXT, NTEXT         text (max length)
//
// Anything else is treated as text. NVARCHAR(MAX) and NVARCHAR(-1) are unbounded.
//
// A declaration without "= expr" has no default and the parameter is required.
// "= NULL" is an explicit null default and makes the parameter optional.
//
// # Default Expressions
//
// The expression after "=" extends to the next DECLARE keyword or the end of
// the script, so it may span several lines. The last declaration therefore
// takes everything after it as its expression; such defaults fail to coerce
// and fall back to raw text. Keep a blank line and the statement body after the
// final declaration, or give it no default. A string literal containing the
// word DECLARE ends an expression early; Lint reports these.
//
// # Annotations
//
// A comment line gives a parameter a friendly name and help text:
//
//	-- @param StartDate "Start Date" "First day included in the report"
//
// The name matches the declaration case-insensitively. The display name is
// required and the description is optional. The last annotation for a name wins.
//
// # Execution
//
// RemoveDeclareBlock strips annotations and the DECLARE prologue so the
// remaining statements can run with @Name parameters bound by the driver.
// Bound text values are screened with libinjection before execution.
package sql
