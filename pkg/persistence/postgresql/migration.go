package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create save_slots table
			CREATE TABLE save_slots (
				graph_id VARCHAR(255) NOT NULL,
				slot VARCHAR(255) NOT NULL,
				run_id VARCHAR(64),
				node_id VARCHAR(255) NOT NULL,
				variables JSONB NOT NULL DEFAULT '{}',
				node_states JSONB NOT NULL DEFAULT '{}',
				saved_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (graph_id, slot)
			);

			CREATE INDEX idx_save_slots_saved_at ON save_slots(saved_at);
		`,
	}
}
