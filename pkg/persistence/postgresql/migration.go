package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				email_verified BOOLEAN NOT NULL DEFAULT FALSE,
				business_type TEXT NOT NULL DEFAULT '',
				business_info_provided BOOLEAN NOT NULL DEFAULT FALSE,
				mailbox_connected BOOLEAN NOT NULL DEFAULT FALSE,
				oauth_status TEXT NOT NULL DEFAULT 'none',
				onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
				onboarding_completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS automation_configs (
				user_id TEXT PRIMARY KEY REFERENCES users(id),
				config JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS deployments (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(id),
				external_workflow_id TEXT NOT NULL DEFAULT '',
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				config_snapshot JSONB NOT NULL,
				last_error TEXT NOT NULL DEFAULT '',
				deployed_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX IF NOT EXISTS deployments_user_id_active
				ON deployments (user_id) WHERE deleted_at IS NULL;
		`,
	}
}
