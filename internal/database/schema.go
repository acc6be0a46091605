package database

// Relational backends store the primitive in two tables: one row per scalar
// and one row per set member.

func GetPostgresSchema() []string {
	return []string{
		`
		CREATE TABLE IF NOT EXISTS kv_values (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`,
		`
		CREATE TABLE IF NOT EXISTS kv_members (
			set_key TEXT NOT NULL,
			member TEXT NOT NULL,
			PRIMARY KEY (set_key, member)
		);
	`,
	}
}

func GetMySQLSchema() []string {
	return []string{
		`
		CREATE TABLE IF NOT EXISTS kv_values (
			` + "`key`" + ` VARCHAR(255) NOT NULL PRIMARY KEY,
			value LONGTEXT NOT NULL
		) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin;
	`,
		`
		CREATE TABLE IF NOT EXISTS kv_members (
			set_key VARCHAR(255) NOT NULL,
			member VARCHAR(255) NOT NULL,
			PRIMARY KEY (set_key, member)
		) DEFAULT CHARSET = utf8mb4 COLLATE = utf8mb4_bin;
	`,
	}
}

func GetSQLiteSchema() []string {
	return []string{
		`
		CREATE TABLE IF NOT EXISTS kv_values (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`,
		`
		CREATE TABLE IF NOT EXISTS kv_members (
			set_key TEXT NOT NULL,
			member TEXT NOT NULL,
			PRIMARY KEY (set_key, member)
		);
	`,
	}
}

/*
MongoDB document structure (collection "kv"):

scalar: {
  _id: <key>,
  value: <string>
}

set: {
  _id: <set key>,
  members: [<string>]
}
*/
