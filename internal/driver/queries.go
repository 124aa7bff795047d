package driver

const (
	SaveCurveQuery = `
		MERGE (n:Curve {uuid: $uuid})
		SET n.group_id = $group_id,
			n.seq = coalesce(n.seq, $seq),
			n.kind = $kind,
			n.closed = $closed,
			n.elevation = $elevation,
			n.layer = $layer,
			n.xs = $xs,
			n.ys = $ys,
			n.bulges = $bulges,
			n.erased = false,
			n.updated_at = $updated_at
		RETURN n.uuid AS uuid
	`

	GetCurveQuery = `
		MATCH (n:Curve {uuid: $uuid, group_id: $group_id})
		WHERE n.erased = false
		RETURN n.uuid AS uuid, n.kind AS kind, n.closed AS closed, n.elevation AS elevation,
			n.layer AS layer, n.xs AS xs, n.ys AS ys, n.bulges AS bulges
	`

	ListCurveHandlesQuery = `
		MATCH (n:Curve {group_id: $group_id})
		WHERE n.erased = false
		RETURN n.uuid AS uuid
		ORDER BY n.seq
	`

	NextCurveSeqQuery = `
		MATCH (n:Curve {group_id: $group_id})
		RETURN coalesce(max(n.seq), -1) + 1 AS seq
	`

	// Erased curves stay in the graph so replacement lineage survives.
	EraseCurveQuery = `
		MATCH (n:Curve {uuid: $uuid, group_id: $group_id})
		WHERE n.erased = false
		SET n.erased = true, n.erased_at = $erased_at
		RETURN n.uuid AS uuid
	`

	SaveReplacementQuery = `
		MATCH (source:Curve {uuid: $source_uuid})
		MATCH (target:Curve {uuid: $target_uuid})
		MERGE (source)-[e:REPLACED_BY {result_id: $result_id}]->(target)
		SET e.action = $action,
			e.created_at = $created_at
		RETURN source.uuid AS uuid
	`

	GetReplacementsQuery = `
		MATCH (source:Curve {uuid: $uuid})-[e:REPLACED_BY]->(target:Curve)
		RETURN target.uuid AS uuid, e.action AS action, e.result_id AS result_id
		ORDER BY target.seq
	`

	ClearDrawingQuery = `
		MATCH (n:Curve {group_id: $group_id})
		DETACH DELETE n
	`
)
