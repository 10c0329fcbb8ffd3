package database

import _ "embed"

//go:embed migrations/m1_create_additional_indexes.sql
var m1CreateAdditionalIndexes string

//go:embed migrations/m2_search_create_files_pages_table.sql
var m2SearchCreateFilesPagesTable string

//go:embed migrations/m3_create_tsvector_columns.sql
var m3CreateTsvectorColumns string

//go:embed migrations/m4_search_functions_and_types.sql
var m4SearchFunctionsAndTypes string

type namedMigration struct {
	name string
	sql  string
}

// tenantMigrations are applied in order the first time a tenant adopts
// the database search backend (and on every new tenant provisioned with
// it). They add the GIN-indexed tsvector columns and docbox_files_pages
// table this backend reads at search time.
var tenantMigrations = []namedMigration{
	{name: "m1_create_additional_indexes", sql: m1CreateAdditionalIndexes},
	{name: "m2_search_create_files_pages_table", sql: m2SearchCreateFilesPagesTable},
	{name: "m3_create_tsvector_columns", sql: m3CreateTsvectorColumns},
	{name: "m4_search_functions_and_types", sql: m4SearchFunctionsAndTypes},
}
