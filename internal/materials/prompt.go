package materials

const systemPromptCoach = "You are an expert career coach and resume writer. Always respond with valid JSON matching the requested structure."

const generatePromptTemplate = `You are an expert career coach and resume writer. Analyze the following CV and job description, then generate a comprehensive application package.

CV:
%s

Job Description:
%s

Generate a JSON response with the following structure:
{
  "rewrittenCV": "A professionally rewritten CV tailored to this specific job, highlighting relevant experience and skills. Keep the original information but reframe it to match the job requirements.",
  "coverLetter": "A compelling cover letter (3-4 paragraphs) that demonstrates why the candidate is perfect for this role. Include specific examples from their CV.",
  "skillsMatch": ["List of 5-7 skills from the CV that match the job requirements"],
  "skillsGap": ["List of 3-5 skills mentioned in the job description that are missing or weak in the CV"],
  "interviewQuestions": ["Array of 5-7 likely interview questions based on the job requirements"],
  "summary": "A brief 2-3 paragraph summary of the candidate's fit for the role, highlighting key strengths and areas to emphasize in the interview"
}

Ensure all text is professional, specific, and actionable. The rewritten CV should be formatted clearly with proper sections.`
