package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE sheets (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				columns JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE rows (
				id UUID PRIMARY KEY,
				sheet_id UUID NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
				data JSONB NOT NULL DEFAULT '{}',
				position DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_rows_sheet_position ON rows(sheet_id, position, created_at);
			CREATE INDEX idx_rows_data ON rows USING GIN (data);

			CREATE TABLE rules (
				id UUID PRIMARY KEY,
				sheet_id UUID NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
				trigger_column VARCHAR(255) NOT NULL,
				trigger_value VARCHAR(255) NOT NULL,
				action_type VARCHAR(50) NOT NULL CHECK (action_type IN ('message', 'email', 'group_invite')),
				action_config JSONB NOT NULL DEFAULT '{}',
				enabled BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_rules_sheet_enabled ON rules(sheet_id, enabled);

			CREATE TABLE execution_log (
				id UUID PRIMARY KEY,
				rule_id UUID NOT NULL REFERENCES rules(id) ON DELETE CASCADE,
				row_id UUID REFERENCES rows(id) ON DELETE SET NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'success', 'failed', 'skipped', 'retrying')),
				message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_log_rule ON execution_log(rule_id, created_at DESC);
			CREATE INDEX idx_execution_log_rule_row_status ON execution_log(rule_id, row_id, status);
		`,
	}
}
