package datasource

import "fmt"

// DescribeTable returns the catalog comment when one exists, otherwise a
// description synthesized from the table name so every table carries a
// non-empty description.
func DescribeTable(name, comment string) string {
	if comment != "" {
		return comment
	}
	return fmt.Sprintf("Table %s", name)
}

// DescribeColumn returns the catalog comment when one exists, otherwise a
// description synthesized from the column name and declared type.
func DescribeColumn(name, typ, comment string) string {
	if comment != "" {
		return comment
	}
	return fmt.Sprintf("Column %s of type %s", name, typ)
}
