package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE contribution_runs (
				id VARCHAR(64) PRIMARY KEY,
				owner VARCHAR(128) NOT NULL,
				account VARCHAR(256) NOT NULL,
				amount NUMERIC(78, 0) NOT NULL,
				status VARCHAR(32) NOT NULL CHECK (status IN ('in_progress', 'completed', 'failed')),
				step SMALLINT NOT NULL,
				state JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_contribution_runs_owner_created ON contribution_runs(owner, created_at DESC);
		`,
		2: `
			CREATE INDEX idx_contribution_runs_status ON contribution_runs(status);
		`,
	}
}
