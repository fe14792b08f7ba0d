package notion

// Properties returns the page's property map
func (p Page) Properties() map[string]interface{} {
	props, _ := p["properties"].(map[string]interface{})
	return props
}

// Property returns one property object
func (p Page) Property(name string) map[string]interface{} {
	prop, _ := p.Properties()[name].(map[string]interface{})
	return prop
}

// SelectName returns the option name of a select property, or an empty string
func (p Page) SelectName(name string) string {
	sel, _ := p.Property(name)["select"].(map[string]interface{})
	s, _ := sel["name"].(string)
	return s
}

// FirstRelation returns the id of the first page a relation property points at
func FirstRelation(prop map[string]interface{}) string {
	if t, _ := prop["type"].(string); t != "relation" {
		return ""
	}
	rel, _ := prop["relation"].([]interface{})
	if len(rel) == 0 {
		return ""
	}
	first, _ := rel[0].(map[string]interface{})
	id, _ := first["id"].(string)
	return id
}
