package fieldschema

// FieldNames returns the dotted path of every field in pre-order, e.g.
// company_info, company_info.name, items, items.description.
// List item fields are addressed through the list name without an index.
func FieldNames(s *Schema) []string {
	var names []string
	var walk func(fields []Field, prefix string)
	walk = func(fields []Field, prefix string) {
		for _, f := range fields {
			full := prefix + f.Name
			names = append(names, full)
			switch f.Kind() {
			case TypeMap:
				walk(f.Fields, full+".")
			case TypeList:
				if f.Items.IsMap() {
					walk(f.Items.Fields, full+".")
				}
			}
		}
	}
	if s != nil {
		walk(s.Fields, "")
	}
	return names
}

// LeafCount returns the number of string leaves reachable in one instance of
// the schema (list items counted once).
func LeafCount(s *Schema) int {
	var count func(fields []Field) int
	count = func(fields []Field) int {
		n := 0
		for _, f := range fields {
			switch f.Kind() {
			case TypeMap:
				n += count(f.Fields)
			case TypeList:
				if f.Items.IsMap() {
					n += count(f.Items.Fields)
				} else {
					n++
				}
			default:
				n++
			}
		}
		return n
	}
	if s == nil {
		return 0
	}
	return count(s.Fields)
}
