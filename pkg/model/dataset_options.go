package model

// DatasetDescriptorOption is a functor to build dataset descriptors
type DatasetDescriptorOption func(descriptor *DatasetDescriptor)

// Title sets a human-readable title for the dataset
func Title(title string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Title = title
	}
}

// Description sets the dataset description
func Description(desc string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Description = desc
	}
}

// Creators sets the list of creators for the dataset
func Creators(c []Creator) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Creators = c
	}
}

// SingleCreator sets a single creator for the dataset
func SingleCreator(c Creator) DatasetDescriptorOption {
	return Creators([]Creator{c})
}

// Keywords sets the keywords for the dataset
func Keywords(k []string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Keywords = k
	}
}

// License sets the license for the dataset
func License(l string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.License = l
	}
}

// Language sets the language for the dataset
func Language(l string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Language = l
	}
}

// Version sets the version label for the dataset
func Version(v string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.Version = v
	}
}

// SourceURI records the provider or project a dataset was imported from
func SourceURI(uri string) DatasetDescriptorOption {
	return func(d *DatasetDescriptor) {
		d.SourceURI = uri
	}
}
