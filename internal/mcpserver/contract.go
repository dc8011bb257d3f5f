package mcpserver

// CourseFormatURI is the resource URI of CourseFormatContract.
const CourseFormatURI = "skillpath://course-format"

// CourseFormatContract describes the course JSON accepted by save_course and
// import_course_url.
const CourseFormatContract = `# Skillpath Course Format

A course is a single JSON object. Saving a course whose topic already exists
replaces the stored course for that topic.

## Required fields

- ` + "`topic`" + ` (string, non-empty): the subject of the course. It is the course identity.
- ` + "`skills`" + ` (array): the ordered curriculum, foundational skills first. May be empty.

## Skill

- ` + "`name`" + ` (string): short skill name, 2-5 words.
- ` + "`description`" + ` (string): one sentence.
- ` + "`searchTerms`" + ` (array of strings): search phrases, easiest first. An object
  keyed ` + "`beginner`" + `, ` + "`intermediate`" + `, ` + "`advanced`" + ` is also accepted.
- ` + "`videos`" + ` (array or null): videos found for the search terms.

## Video

- ` + "`id`" + `: YouTube video id. The watch URL is https://www.youtube.com/watch?v=<id>.
- ` + "`title`" + `, ` + "`thumbnail`" + `, ` + "`channelTitle`" + `: display fields.
- ` + "`searchTerm`" + `: the term that found this video.

## Optional fields

- ` + "`generatedAt`" + `: RFC 3339 timestamp.
- ` + "`_debug`" + `: generation diagnostics. Ignored when saving.

## Example

` + "```json" + `
{
  "topic": "Kubernetes",
  "generatedAt": "2026-01-20T10:00:00Z",
  "skills": [
    {
      "name": "Container Basics",
      "description": "Understand images, containers and registries.",
      "searchTerms": ["what is a container", "docker image layers"],
      "videos": [
        {
          "id": "dQw4w9WgXcQ",
          "title": "Containers in 100 seconds",
          "thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
          "channelTitle": "Example Channel",
          "searchTerm": "what is a container"
        }
      ]
    }
  ]
}
` + "```" + `
`
